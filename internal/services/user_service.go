package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/BradenHooton/adminpanel/internal/models"
	pkgauth "github.com/BradenHooton/adminpanel/pkg/auth"
	pkglogger "github.com/BradenHooton/adminpanel/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, digest string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	FindPage(ctx context.Context, req models.PageRequest) (*models.UserPage, error)
	BulkDelete(ctx context.Context, ids []string) (*models.BulkDeleteResult, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// CreateUserInput is an admin-created account
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Birthdate time.Time
	Role      models.Role
}

// UpdateUserInput is a partial update; zero fields are left unchanged
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Birthdate time.Time
	Role      models.Role
}

// UserService handles user business logic
type UserService struct {
	repo        UserRepository
	hasher      *pkgauth.Hasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, hasher *pkgauth.Hasher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// ListUsers returns one keyset page of users
func (s *UserService) ListUsers(ctx context.Context, req models.PageRequest) (*models.UserPage, error) {
	page, err := s.repo.FindPage(ctx, req)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", req.Limit), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return page, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrBadRequest) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// CreateUser creates an account on behalf of an administrator, who may pick its role
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput, actorID string) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.IsValidRole(string(role)) {
		return nil, models.ErrInvalidRole
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.ErrWeakPassword
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Birthdate:    in.Birthdate,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.String("user_id", created.ID), slog.String("role", role.String()))
	s.auditLogger.LogAccountAction(ctx, "user_created", created.ID, actorID, map[string]string{"role": role.String()})
	return created, nil
}

// UpdateUser applies a partial update. Only an admin actor may change a role.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput, actorID string, actorRole models.Role) (*models.User, error) {
	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Role != "" {
		if !models.IsValidRole(string(in.Role)) {
			return nil, models.ErrInvalidRole
		}
		if in.Role != existing.Role && !models.CanAssignRole(actorRole) {
			s.logger.Warn("role change rejected", slog.String("user_id", id), slog.String("actor_id", actorID))
			return nil, models.ErrRoleChangeForbidden
		}
	}

	patch := &models.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     normalizeEmail(in.Email),
		Birthdate: in.Birthdate,
		Role:      in.Role,
	}

	if patch.Email != "" && patch.Email != existing.Email {
		if err := s.ensureEmailFree(ctx, patch.Email, existing.ID); err != nil {
			return nil, err
		}
	}

	if in.Password != "" {
		if err := pkgauth.ValidatePassword(in.Password); err != nil {
			return nil, models.ErrWeakPassword
		}
		if patch.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
			s.logger.Error("failed to hash password", slog.String("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	previousRole := existing.Role
	if err := mergo.Merge(existing, patch, mergo.WithOverride, mergo.WithTransformers(timeTransformer{})); err != nil {
		s.logger.Error("failed to merge user update", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.repo.Update(ctx, id, existing)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrEmailTaken
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.String("user_id", id))
	if updated.Role != previousRole {
		s.auditLogger.LogAccountAction(ctx, "role_changed", id, actorID, map[string]string{
			"from": previousRole.String(),
			"to":   updated.Role.String(),
		})
	}
	return updated, nil
}

// DeleteUser removes a user by ID
func (s *UserService) DeleteUser(ctx context.Context, id, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrBadRequest) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	s.auditLogger.LogAccountAction(ctx, "user_deleted", id, actorID, nil)
	return nil
}

// BulkDeleteUsers removes all given ids in one operation
func (s *UserService) BulkDeleteUsers(ctx context.Context, ids []string, actorID string) (*models.BulkDeleteResult, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	result, err := s.repo.BulkDelete(ctx, unique)
	if err != nil {
		s.logger.Error("failed to bulk delete users", slog.Int("count", len(unique)), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("users bulk deleted",
		slog.Int64("deleted", result.Deleted),
		slog.Int("failed", len(result.Failed)))
	s.auditLogger.LogAccountAction(ctx, "users_bulk_deleted", "", actorID, map[string]string{
		"requested": fmt.Sprint(len(unique)),
		"deleted":   fmt.Sprint(result.Deleted),
	})
	return result, nil
}

// EnsureAdminUser bootstraps the first administrator. It does nothing when an
// admin already exists; an existing account with the given e-mail is promoted.
func (s *UserService) EnsureAdminUser(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		s.logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	admins, err := s.repo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		s.logger.Info("admin user already exists")
		return nil
	}

	email = normalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = models.RoleAdmin
		if _, err := s.repo.Update(ctx, existing.ID, existing); err != nil {
			return fmt.Errorf("failed to promote admin user: %w", err)
		}
		s.logger.Info("existing user promoted to admin", slog.String("user_id", existing.ID))
		return nil
	case !errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		LastName:     "User",
		Birthdate:    time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	s.logger.Info("admin user created successfully", slog.String("user_id", admin.ID))
	return nil
}

// ensureEmailFree fails with ErrEmailTaken if email belongs to an account other than selfID
func (s *UserService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if other.ID != selfID {
			return models.ErrEmailTaken
		}
		return nil
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		s.logger.Error("failed to check email", slog.Any("error", err))
		return models.ErrInternalServer
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// timeTransformer stops mergo from overwriting a time with the zero time
type timeTransformer struct{}

func (timeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}
