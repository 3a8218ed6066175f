// Package auth verifies the bearer tokens minted by the external identity
// collaborator. The core never issues sessions itself; it only checks the
// HMAC signature over the shared session secret and reads the owner id from
// the claims.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common errors for token verification.
var (
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token has expired")
	ErrInvalidSecretLength = errors.New("session secret must be at least 32 characters")
)

// Claims are the JWT claims carried by the identity collaborator's tokens.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the unique identifier for the authenticated user. Handlers
	// use it as the file owner id.
	UserID string `json:"uid"`

	// Username is the human-readable username, informational only.
	Username string `json:"username,omitempty"`
}

// Service validates bearer tokens signed with the shared session secret.
type Service struct {
	secret []byte
}

// NewService creates a token verification service. The secret must match the
// identity collaborator's signing key and be at least 32 characters.
func NewService(secret string) (*Service, error) {
	if len(secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	return &Service{secret: []byte(secret)}, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Sign mints a token for the given user, matching what the identity
// collaborator produces. Used by tests and local tooling.
func (s *Service) Sign(userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   userID,
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Context key type for storing claims.
type contextKey string

const claimsContextKey contextKey = "claims"

// ContextWithClaims returns a context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves claims from the request context. Returns nil if
// the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
