package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/adminpanel/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// TokenManager signs and verifies access and refresh tokens.
// Each kind has its own secret and lifetime.
type TokenManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewTokenManager creates a new TokenManager. Both secrets are required and
// must differ.
func NewTokenManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) (*TokenManager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("access and refresh token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if accessExpiry <= 0 || refreshExpiry <= 0 {
		return nil, errors.New("token expiries must be positive")
	}

	return &TokenManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		now:                time.Now,
	}, nil
}

func (tm *TokenManager) secretFor(kind models.TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case models.TokenKindAccess:
		return tm.accessSecret, tm.accessTokenExpiry, nil
	case models.TokenKindRefresh:
		return tm.refreshSecret, tm.refreshTokenExpiry, nil
	}
	return nil, 0, fmt.Errorf("unknown token kind %q", kind)
}

// GenerateToken signs a single token of the given kind for userID
func (tm *TokenManager) GenerateToken(kind models.TokenKind, userID, email string) (string, error) {
	secret, expiry, err := tm.secretFor(kind)
	if err != nil {
		return "", err
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Type:  kind,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}

	return tokenString, nil
}

// GenerateTokenPair signs the access and refresh tokens concurrently
func (tm *TokenManager) GenerateTokenPair(ctx context.Context, userID, email string) (*models.TokenPair, error) {
	var pair models.TokenPair

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		token, err := tm.GenerateToken(models.TokenKindAccess, userID, email)
		pair.AccessToken = token
		return err
	})
	g.Go(func() error {
		token, err := tm.GenerateToken(models.TokenKindRefresh, userID, email)
		pair.RefreshToken = token
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &pair, nil
}

// VerifyToken checks the signature and expiry of a token of the given kind.
// Every failure is reported as models.ErrInvalidToken.
func (tm *TokenManager) VerifyToken(tokenString string, kind models.TokenKind) (*models.TokenClaims, error) {
	secret, _, err := tm.secretFor(kind)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !token.Valid {
		return nil, models.ErrInvalidToken
	}

	if claims.Type != kind || claims.Subject == "" {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}
