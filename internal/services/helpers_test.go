package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/adminpanel/internal/auth"
	"github.com/BradenHooton/adminpanel/internal/models"
	pkgauth "github.com/BradenHooton/adminpanel/pkg/auth"
	pkglogger "github.com/BradenHooton/adminpanel/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc         func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc      func(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenFunc func(ctx context.Context, digest string) (*models.User, error)
	CreateFunc          func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc          func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc          func(ctx context.Context, id string) error
	FindPageFunc        func(ctx context.Context, req models.PageRequest) (*models.UserPage, error)
	BulkDeleteFunc      func(ctx context.Context, ids []string) (*models.BulkDeleteResult, error)
	CountByRoleFunc     func(ctx context.Context, role models.Role) (int64, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, digest string) (*models.User, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, digest)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) FindPage(ctx context.Context, req models.PageRequest) (*models.UserPage, error) {
	if m.FindPageFunc != nil {
		return m.FindPageFunc(ctx, req)
	}
	return &models.UserPage{Data: []*models.User{}, Limit: req.Limit}, nil
}

func (m *MockUserRepository) BulkDelete(ctx context.Context, ids []string) (*models.BulkDeleteResult, error) {
	if m.BulkDeleteFunc != nil {
		return m.BulkDeleteFunc(ctx, ids)
	}
	return &models.BulkDeleteResult{Failed: []string{}}, nil
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	if m.CountByRoleFunc != nil {
		return m.CountByRoleFunc(ctx, role)
	}
	return 0, nil
}

// memoryUserRepo is a map-backed UserRepository that copies rows in and out
// so tests observe exactly what was persisted
type memoryUserRepo struct {
	MockUserRepository

	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUserRepo(users ...*models.User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = *u
	}
	return r
}

func (r *memoryUserRepo) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			copied := u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *memoryUserRepo) GetByResetToken(ctx context.Context, digest string) (*models.User, error) {
	return r.find(func(u models.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == digest
	})
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return nil, models.ErrConflict
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = *user
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return nil, models.ErrNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = *user
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) snapshot() map[string]models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]models.User, len(r.users))
	for k, v := range r.users {
		out[k] = v
	}
	return out
}

// MockEmailService records sent reset e-mails
type MockEmailService struct {
	SendFunc func(ctx context.Context, email, token string, expiresAt time.Time) error

	mu   sync.Mutex
	Sent []SentEmail
}

type SentEmail struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentEmail{Email: email, Token: token, ExpiresAt: expiresAt})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, email, token, expiresAt)
	}
	return nil
}

const testPassword = "C0rrect-Horse!"

// NewTestUser creates a user whose password is testPassword, hashed at the
// minimum bcrypt cost
func NewTestUser(t *testing.T, id, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Birthdate:    time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newTestHasher(t *testing.T) *pkgauth.Hasher {
	t.Helper()
	h, err := pkgauth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(
		"access-secret-for-tests-0123456789",
		"refresh-secret-for-tests-012345678",
		15*time.Minute, 7*24*time.Hour,
	)
	require.NoError(t, err)
	return tm
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService wires an AuthService with no timing padding. The returned
// buffer captures audit output.
func newTestAuthService(t *testing.T, repo UserRepository, email EmailService) (*AuthService, *bytes.Buffer) {
	t.Helper()
	var audit bytes.Buffer
	svc := NewAuthService(
		repo,
		newTestTokenManager(t),
		newTestHasher(t),
		email,
		auth.NewTimingDelay(auth.TimingConfig{}),
		3*time.Hour,
		discardLogger(),
		pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(&audit, nil))),
	)
	return svc, &audit
}

func newTestUserService(t *testing.T, repo UserRepository) *UserService {
	t.Helper()
	return NewUserService(repo, newTestHasher(t), discardLogger(), pkglogger.NewAuditLogger(discardLogger()))
}
