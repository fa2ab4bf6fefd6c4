package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/BradenHooton/adminpanel/internal/auth"
	"github.com/BradenHooton/adminpanel/internal/models"
	"github.com/BradenHooton/adminpanel/internal/services"
	pkghttp "github.com/BradenHooton/adminpanel/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserService defines the interface for user business logic
type UserService interface {
	ListUsers(ctx context.Context, req models.PageRequest) (*models.UserPage, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, in services.CreateUserInput, actorID string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, in services.UpdateUserInput, actorID string, actorRole models.Role) (*models.User, error)
	DeleteUser(ctx context.Context, id, actorID string) error
	BulkDeleteUsers(ctx context.Context, ids []string, actorID string) (*models.BulkDeleteResult, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
	Birthdate string `json:"birthdate" validate:"required,datetime=2006-01-02,notfuture"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UpdateUserRequest represents the request body for updating a user.
// Omitted fields are left unchanged.
type UpdateUserRequest struct {
	FirstName string `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName  string `json:"lastName" validate:"omitempty,min=2,max=50"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	Password  string `json:"password" validate:"omitempty,max=72"`
	Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02,notfuture"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin"`
}

// BulkDeleteRequest represents the request body for deleting many users
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,uuid"`
}

// ListUsersQuery holds the query parameters of GET /users
type ListUsersQuery struct {
	Cursor    string `json:"cursor" validate:"omitempty,max=64"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=100"`
	SortBy    string `json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt firstName lastName email birthdate"`
	SortOrder string `json:"sortOrder" validate:"omitempty,oneofci=ASC DESC"`
	Search    string `json:"search" validate:"omitempty,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"omitempty,max=255"`
}

// PageMeta describes where a page sits in the listing
type PageMeta struct {
	NextCursor *string `json:"nextCursor"`
	HasMore    bool    `json:"hasMore"`
	Count      int     `json:"count"`
	Limit      int     `json:"limit"`
}

// ListUsersResponse represents one page of users
type ListUsersResponse struct {
	Data []*services.UserResponse `json:"data"`
	Meta PageMeta                 `json:"meta"`
}

// ListUsers returns one keyset page of users
//
// @Summary List users
// @Param cursor query string false "ID of the last user on the previous page"
// @Param limit query int false "Page size (1-100)" default(10)
// @Param sortBy query string false "Sort field" default(createdAt)
// @Param sortOrder query string false "ASC or DESC" default(DESC)
// @Param search query string false "Substring of email, first or last name"
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ListUsersQuery{
		Cursor:    q.Get("cursor"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Search:    q.Get("search"),
		FirstName: q.Get("firstName"),
		LastName:  q.Get("lastName"),
		Email:     q.Get("email"),
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		query.Limit = n
	}

	if err := ValidateRequest(query); err != nil {
		writeValidationError(w, err)
		return
	}

	page, err := h.service.ListUsers(r.Context(), models.PageRequest{
		Cursor:    query.Cursor,
		Limit:     query.Limit,
		SortBy:    models.SortField(query.SortBy),
		SortOrder: models.ParseSortOrder(query.SortOrder),
		Filters: models.UserFilters{
			Search:    query.Search,
			FirstName: query.FirstName,
			LastName:  query.LastName,
			Email:     query.Email,
		},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := &ListUsersResponse{
		Data: make([]*services.UserResponse, len(page.Data)),
		Meta: PageMeta{
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
			Count:      page.Count,
			Limit:      page.Limit,
		},
	}
	for i, user := range page.Data {
		response.Data[i] = services.ToUserResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// GetUser retrieves a user by ID
//
// @Summary Get user by ID
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if _, ok := h.authorizeSelfOrAdmin(w, r, userID); !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.ToUserResponse(user))
}

// Me returns the account behind the access token
//
// @Summary Current user profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, models.ErrInvalidToken.Message)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID())
	if err != nil {
		// token outlived its account
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, models.ErrInvalidToken.Message)
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.ToUserResponse(user))
}

// CreateUser creates a new user with an administrator-chosen role
//
// @Summary Create a new user
// @Accept json
// @Param request body CreateUserRequest true "Create user request"
// @Produce json
// @Success 201 {object} services.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	birthdate, err := parseDate(req.Birthdate)
	if err != nil {
		pkghttp.WriteBadRequest(w, "validation failed: birthdate: must be a date in YYYY-MM-DD format")
		return
	}

	created, err := h.service.CreateUser(r.Context(), services.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Birthdate: birthdate,
		Role:      models.Role(req.Role),
	}, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, services.ToUserResponse(created))
}

// UpdateUser updates an existing user
//
// @Summary Update a user
// @Param id path string true "User ID"
// @Accept json
// @Param request body UpdateUserRequest true "Update user request"
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	actor, ok := h.authorizeSelfOrAdmin(w, r, userID)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	in := services.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.Role(req.Role),
	}
	if req.Birthdate != "" {
		birthdate, err := parseDate(req.Birthdate)
		if err != nil {
			pkghttp.WriteBadRequest(w, "validation failed: birthdate: must be a date in YYYY-MM-DD format")
			return
		}
		in.Birthdate = birthdate
	}

	updated, err := h.service.UpdateUser(r.Context(), userID, in, actor.ID, actor.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.ToUserResponse(updated))
}

// DeleteUser deletes a user
//
// @Summary Delete a user
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := h.service.DeleteUser(r.Context(), userID, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete removes every listed user in one operation
//
// @Summary Delete many users
// @Accept json
// @Param request body BulkDeleteRequest true "IDs to delete"
// @Produce json
// @Success 200 {object} models.BulkDeleteResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /users/bulk-delete [post]
func (h *UserHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.BulkDeleteUsers(r.Context(), req.IDs, actorID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Helper functions

// authorizeSelfOrAdmin loads the calling account and allows the request if
// it targets the caller's own record or the caller is an admin. On failure
// the response has already been written.
func (h *UserHandler) authorizeSelfOrAdmin(w http.ResponseWriter, r *http.Request, requestedUserID string) (*models.User, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, models.ErrInvalidToken.Message)
		return nil, false
	}

	actor, err := h.service.GetUserByID(r.Context(), claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, models.ErrInvalidToken.Message)
			return nil, false
		}
		writeServiceError(w, err)
		return nil, false
	}

	if actor.ID != requestedUserID && actor.Role != models.RoleAdmin {
		pkghttp.WriteForbidden(w, "You cannot access this resource")
		return nil, false
	}
	return actor, true
}

// actorID is the id of the authenticated caller, or "" if there is none
func actorID(r *http.Request) string {
	if claims := auth.GetUserFromContext(r); claims != nil {
		return claims.UserID()
	}
	return ""
}
