package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/adminpanel/internal/auth"
	"github.com/BradenHooton/adminpanel/internal/models"
	"github.com/BradenHooton/adminpanel/internal/services"
	pkghttp "github.com/BradenHooton/adminpanel/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds access token claims to the request context
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		Type:             models.TokenKindAccess,
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithAccountContext adds the loaded account, as RefreshMiddleware and
// RequireRole do
func WithAccountContext(req *http.Request, user *models.User) *http.Request {
	req = WithAuthContext(req, user.ID, user.Email)
	ctx := context.WithValue(req.Context(), auth.AccountContextKey, user)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response and returns it
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// NewTestUser builds a stored user for handler tests
func NewTestUser(id, email string, role models.Role) *models.User {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.User{
		ID:        id,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Birthdate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error)
	LoginFunc          func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	RefreshTokensFunc  func(ctx context.Context, user *models.User) (*services.AuthResponse, error)
	ForgotPasswordFunc func(ctx context.Context, email string) (*services.MessageResponse, error)
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string) (*services.MessageResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrEmailTaken
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, user *models.User) (*services.AuthResponse, error) {
	if m.RefreshTokensFunc == nil {
		return nil, models.ErrInvalidToken
	}
	return m.RefreshTokensFunc(ctx, user)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) (*services.MessageResponse, error) {
	if m.ForgotPasswordFunc == nil {
		return &services.MessageResponse{Message: services.ForgotPasswordMessage}, nil
	}
	return m.ForgotPasswordFunc(ctx, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) (*services.MessageResponse, error) {
	if m.ResetPasswordFunc == nil {
		return nil, models.ErrInvalidResetToken
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	ListUsersFunc       func(ctx context.Context, req models.PageRequest) (*models.UserPage, error)
	GetUserByIDFunc     func(ctx context.Context, id string) (*models.User, error)
	CreateUserFunc      func(ctx context.Context, in services.CreateUserInput, actorID string) (*models.User, error)
	UpdateUserFunc      func(ctx context.Context, id string, in services.UpdateUserInput, actorID string, actorRole models.Role) (*models.User, error)
	DeleteUserFunc      func(ctx context.Context, id, actorID string) error
	BulkDeleteUsersFunc func(ctx context.Context, ids []string, actorID string) (*models.BulkDeleteResult, error)
}

func (m *MockUserService) ListUsers(ctx context.Context, req models.PageRequest) (*models.UserPage, error) {
	if m.ListUsersFunc == nil {
		return &models.UserPage{Data: []*models.User{}}, nil
	}
	return m.ListUsersFunc(ctx, req)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserByIDFunc(ctx, id)
}

func (m *MockUserService) CreateUser(ctx context.Context, in services.CreateUserInput, actorID string) (*models.User, error) {
	if m.CreateUserFunc == nil {
		return nil, models.ErrEmailTaken
	}
	return m.CreateUserFunc(ctx, in, actorID)
}

func (m *MockUserService) UpdateUser(ctx context.Context, id string, in services.UpdateUserInput, actorID string, actorRole models.Role) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, id, in, actorID, actorRole)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id, actorID string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, id, actorID)
}

func (m *MockUserService) BulkDeleteUsers(ctx context.Context, ids []string, actorID string) (*models.BulkDeleteResult, error) {
	if m.BulkDeleteUsersFunc == nil {
		return &models.BulkDeleteResult{Failed: []string{}}, nil
	}
	return m.BulkDeleteUsersFunc(ctx, ids, actorID)
}

// UsersByID answers GetUserByID from a fixed set of users
func UsersByID(users ...*models.User) func(ctx context.Context, id string) (*models.User, error) {
	return func(ctx context.Context, id string) (*models.User, error) {
		for _, u := range users {
			if u.ID == id {
				copied := *u
				return &copied, nil
			}
		}
		return nil, models.ErrNotFound
	}
}
