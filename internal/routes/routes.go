package routes

import (
	"github.com/BradenHooton/adminpanel/internal/auth"
	"github.com/BradenHooton/adminpanel/internal/handlers"
	"github.com/BradenHooton/adminpanel/internal/middleware"
	"github.com/BradenHooton/adminpanel/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	userRepo auth.UserRepository,
) {
	// Rate limiting config for auth endpoints
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	userLimits := middleware.DefaultUserRateLimit()

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(authLimit)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)
	})

	// Refresh token holders only
	router.With(authLimit, auth.RefreshMiddleware(tokenManager, userRepo)).Post("/auth/refresh", authHandler.RefreshToken)

	// Protected routes - access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		// Any authenticated user; self-or-admin is checked in the handler
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByUserID(userLimits, "read"))
			r.Get("/auth/me", userHandler.Me)
			r.Get("/users/{id}", userHandler.GetUser)
		})
		r.With(middleware.RateLimitByUserID(userLimits, "write")).Put("/users/{id}", userHandler.UpdateUser)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, models.RoleAdmin))
			r.With(middleware.RateLimitByUserID(userLimits, "read")).Get("/users", userHandler.ListUsers)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByUserID(userLimits, "write"))
				r.Post("/users", userHandler.CreateUser)
				r.Post("/users/bulk-delete", userHandler.BulkDelete)
				r.Delete("/users/{id}", userHandler.DeleteUser)
			})
		})
	})
}
