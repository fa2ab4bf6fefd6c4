package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access tokens from refresh tokens
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims is the JWT payload. Subject carries the user ID.
type TokenClaims struct {
	Type  TokenKind `json:"type"`
	Email string    `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// TokenPair holds an independently signed access/refresh token pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
