package models

import (
	"time"
)

type User struct {
	ID                   string
	Email                string
	PasswordHash         string // never leaves the repository/service boundary
	FirstName            string
	LastName             string
	Birthdate            time.Time
	Role                 Role
	PasswordResetToken   *string    // SHA-256 digest of the e-mailed token
	PasswordResetExpires *time.Time // set and cleared together with PasswordResetToken
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SetResetToken stores a reset token digest and its expiry as a pair
func (u *User) SetResetToken(digest string, expiresAt time.Time) {
	u.PasswordResetToken = &digest
	u.PasswordResetExpires = &expiresAt
}

// ClearResetToken removes the reset token pair
func (u *User) ClearResetToken() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

// ResetTokenExpired reports whether the reset pair is unusable at the given instant.
// A missing expiry counts as expired.
func (u *User) ResetTokenExpired(now time.Time) bool {
	return u.PasswordResetExpires == nil || !now.Before(*u.PasswordResetExpires)
}

// BulkDeleteResult reports the outcome of deleting a set of users
type BulkDeleteResult struct {
	Deleted int64    `json:"deleted"`
	Failed  []string `json:"failed"`
}
