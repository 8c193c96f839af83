package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of an access token the client cares about.
type Claims struct {
	UserID    int64
	ExpiresAt time.Time
}

// Expired reports whether the token expiry has passed at now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

type accessClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the payload of an access token without verifying its
// signature. The server remains the authority on validity.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNotAuthenticated
	}
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	out := Claims{UserID: claims.UserID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Claims decodes the held access token.
func (m *Manager) Claims() (Claims, error) {
	return ParseClaims(m.AccessToken())
}
