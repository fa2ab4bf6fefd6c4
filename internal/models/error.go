package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// PublicError is a classified error whose Message is safe to return to clients verbatim.
// errors.Is matches it against its Kind.
type PublicError struct {
	Kind    error
	Message string
}

func (e *PublicError) Error() string {
	return e.Message
}

func (e *PublicError) Unwrap() error {
	return e.Kind
}

// Auth flow errors. The messages are fixed so that callers cannot tell
// which internal branch produced them.
var (
	ErrEmailTaken          = &PublicError{Kind: ErrConflict, Message: "User with this email already exists"}
	ErrInvalidCredentials  = &PublicError{Kind: ErrUnauthorized, Message: "Invalid credentials"}
	ErrInvalidToken        = &PublicError{Kind: ErrUnauthorized, Message: "Invalid or expired token"}
	ErrInvalidResetToken   = &PublicError{Kind: ErrBadRequest, Message: "Invalid or expired reset token"}
	ErrResetTokenExpired   = &PublicError{Kind: ErrBadRequest, Message: "Reset token has expired"}
	ErrRoleChangeForbidden = &PublicError{Kind: ErrForbidden, Message: "Only administrators can change roles"}
	ErrWeakPassword        = &PublicError{Kind: ErrBadRequest, Message: "Password does not meet requirements"}
	ErrInvalidRole         = &PublicError{Kind: ErrBadRequest, Message: "Invalid role"}
)

// PublicMessage returns the client-facing message of err, or fallback if err carries none
func PublicMessage(err error, fallback string) string {
	var pe *PublicError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return fallback
}
