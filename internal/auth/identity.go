package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is the caller as known to the external auth provider.
// ID is the stable reference stored on user profiles as auth_id.
type Identity struct {
	ID           string         `json:"id"`
	Email        string         `json:"email,omitempty"`
	Role         string         `json:"role,omitempty"`
	Audience     string         `json:"aud,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
}

// Session is the token bundle returned by a password sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenVerifier exchanges a bearer credential for an identity.
// Implementations return ErrInvalidToken for rejected or expired tokens.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// PasswordAuthenticator signs a user in with email and password.
// Implementations return ErrInvalidCredentials when the provider refuses.
type PasswordAuthenticator interface {
	SignIn(ctx context.Context, email, password string) (Identity, Session, error)
}

func TokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(parts[1]), nil
}
