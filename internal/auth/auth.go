// Package auth resolves bearer credentials to an authenticated user identity.
// Token issuance is external; this package only verifies and extracts.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a credential cannot be resolved to a user.
var ErrInvalidToken = errors.New("auth: invalid token")

// Resolver maps a bearer token to the user id it authenticates.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Static resolves tokens against an in-memory map. The map can be swapped at
// runtime (token rotation via config hot reload).
type Static struct {
	mu     sync.RWMutex
	tokens map[string]string // token -> user id
}

// NewStatic creates a resolver over a token -> user id map.
func NewStatic(tokens map[string]string) *Static {
	return &Static{tokens: tokens}
}

// Resolve returns the user id registered for token.
func (s *Static) Resolve(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	userID, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok || token == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// Replace swaps the token map.
func (s *Static) Replace(tokens map[string]string) {
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
}

// JWT resolves HMAC-signed JWTs issued by the external auth service. The
// token's subject claim is the user id.
type JWT struct {
	secret []byte
}

// NewJWT creates a resolver that verifies tokens with the given shared secret.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// Resolve verifies the token signature and expiry and returns the subject.
func (j *JWT) Resolve(_ context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Fixed resolves every request to a single user id, ignoring the token.
// Used in disabled auth mode for local development.
type Fixed struct {
	UserID string
}

// Resolve returns the fixed user id.
func (f Fixed) Resolve(context.Context, string) (string, error) {
	return f.UserID, nil
}
