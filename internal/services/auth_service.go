package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/adminpanel/internal/auth"
	"github.com/BradenHooton/adminpanel/internal/models"
	pkgauth "github.com/BradenHooton/adminpanel/pkg/auth"
	pkghttp "github.com/BradenHooton/adminpanel/pkg/http"
	pkglogger "github.com/BradenHooton/adminpanel/pkg/logger"
)

const (
	// ForgotPasswordMessage is returned whether or not the account exists
	ForgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."
	ResetPasswordMessage  = "Password has been reset successfully"
)

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	hasher      *pkgauth.Hasher
	email       EmailService
	timing      *auth.TimingDelay
	resetTTL    time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	tm *auth.TokenManager,
	hasher *pkgauth.Hasher,
	email EmailService,
	timing *auth.TimingDelay,
	resetTTL time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		hasher:      hasher,
		email:       email,
		timing:      timing,
		resetTTL:    resetTTL,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// RegisterInput is a self-registration request. Role is accepted so that
// callers can pass the raw payload through; it is never stored.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Birthdate time.Time
	Role      models.Role
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Birthdate string `json:"birthdate"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	User         *UserResponse `json:"user"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
}

// MessageResponse is a body carrying only a human-readable message
type MessageResponse struct {
	Message string `json:"message"`
}

// ToUserResponse converts a user model to its public representation
func ToUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Birthdate: user.Birthdate.Format(time.DateOnly),
		Role:      user.Role.String(),
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Register creates a user account with the user role and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	email := normalizeEmail(in.Email)
	ip := pkghttp.ClientIPFromContext(ctx)

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.ErrWeakPassword
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration rejected: email taken", pkglogger.EmailAttr(email))
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "register_failed",
			IPAddress:     ip,
			FailureReason: "email_taken",
		})
		return nil, models.ErrEmailTaken
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if in.Role != "" && in.Role != models.RoleUser {
		s.logger.Warn("registration tried to set a role", slog.String("role", in.Role.String()))
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Birthdate:    in.Birthdate,
		Role:         models.RoleUser,
	})
	if err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "register_success",
		UserID:    user.ID,
		IPAddress: ip,
		Success:   true,
	})

	return s.issue(ctx, user)
}

// Login authenticates a user by e-mail and password. Both failure branches
// cost one bcrypt comparison and return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	start := time.Now()
	ip := pkghttp.ClientIPFromContext(ctx)

	fail := func(userID, reason string) (*AuthResponse, error) {
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        userID,
			IPAddress:     ip,
			FailureReason: reason,
		})
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = s.hasher.CompareDummy(password)
			return fail("", "invalid_credentials")
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return fail(user.ID, "invalid_credentials")
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ip,
		Success:   true,
	})
	s.timing.WaitFrom(ctx, start, true)

	return resp, nil
}

// RefreshTokens issues a fresh token pair for a user whose refresh token was
// already verified upstream
func (s *AuthService) RefreshTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tokens refreshed", slog.String("user_id", user.ID))
	return resp, nil
}

// GenerateTokens signs an access/refresh pair for user
func (s *AuthService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	return s.tm.GenerateTokenPair(ctx, user.ID, user.Email)
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	pair, err := s.GenerateTokens(ctx, user)
	if err != nil {
		s.logger.Error("failed to generate tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		User:         ToUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// ForgotPassword starts a password reset. The response is the same whether or
// not the account exists, and both branches are padded to the same floor.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	defer s.timing.WaitFrom(ctx, time.Now(), false)

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown account")
			return &MessageResponse{Message: ForgotPasswordMessage}, nil
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, digest, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.resetTTL).UTC()
	user.SetResetToken(digest, expiresAt)
	if _, err := s.repo.Update(ctx, user.ID, user); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, token, expiresAt); err != nil {
		s.logger.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	s.auditLogger.LogPasswordReset(ctx, user.ID, "requested", true, "")
	return &MessageResponse{Message: ForgotPasswordMessage}, nil
}

// ResetPassword sets a new password using a single-use reset token.
// An expired token is cleared before the request fails.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	if token = strings.TrimSpace(token); token == "" {
		return nil, models.ErrInvalidResetToken
	}

	user, err := s.repo.GetByResetToken(ctx, pkgauth.HashResetToken(token))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogPasswordReset(ctx, "", "completed", false, "unknown_token")
			return nil, models.ErrInvalidResetToken
		}
		s.logger.Error("failed to get user by reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.ResetTokenExpired(s.now()) {
		user.ClearResetToken()
		if _, err := s.repo.Update(ctx, user.ID, user); err != nil {
			s.logger.Error("failed to clear expired reset token", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.auditLogger.LogPasswordReset(ctx, user.ID, "completed", false, "expired_token")
		return nil, models.ErrResetTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, models.ErrWeakPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user.PasswordHash = hash
	user.ClearResetToken()
	if _, err := s.repo.Update(ctx, user.ID, user); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	s.auditLogger.LogPasswordReset(ctx, user.ID, "completed", true, "")
	return &MessageResponse{Message: ResetPasswordMessage}, nil
}
