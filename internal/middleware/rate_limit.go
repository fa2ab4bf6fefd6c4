package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/adminpanel/internal/auth"
	pkghttp "github.com/BradenHooton/adminpanel/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns default rate limit config for auth endpoints (5 requests per minute)
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 5,
	}
}

// AuthenticatedRateLimitConfig caps requests per signed-in user
type AuthenticatedRateLimitConfig struct {
	ReadOperationsPerMinute  int
	WriteOperationsPerMinute int
}

// DefaultUserRateLimit returns default limits for the user management endpoints
func DefaultUserRateLimit() AuthenticatedRateLimitConfig {
	return AuthenticatedRateLimitConfig{
		ReadOperationsPerMinute:  100,
		WriteOperationsPerMinute: 30,
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
}

// keyByClientIP keys on the address resolved by pkghttp.ClientIP, falling
// back to the connection address
func keyByClientIP(r *http.Request) (string, error) {
	if ip := pkghttp.ClientIPFromContext(r.Context()); ip != "" {
		return ip, nil
	}
	return httprate.KeyByIP(r)
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(keyByClientIP),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

// RateLimitByUserID rate limits by the authenticated user, or by client IP
// when the request carries no claims. op is "read" or "write".
func RateLimitByUserID(config AuthenticatedRateLimitConfig, op string) func(next http.Handler) http.Handler {
	limit := config.ReadOperationsPerMinute
	if op == "write" {
		limit = config.WriteOperationsPerMinute
	}

	return httprate.Limit(
		limit,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetUserFromContext(r); claims != nil && claims.UserID() != "" {
				return "user:" + claims.UserID() + ":" + op, nil
			}
			return keyByClientIP(r)
		}),
		httprate.WithLimitHandler(writeRateLimited),
	)
}
