package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims for WireChat authentication.
// The shape is shared with the server; the client never signs tokens itself
// outside of tests and local development.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
	jwt.RegisteredClaims
}

// Identity is what the client knows about itself from its token.
type Identity struct {
	UserID    int64
	Username  string
	IsGuest   bool
	ExpiresAt time.Time
}

var ErrTokenExpired = errors.New("auth token expired")

// Inspect decodes a token without verifying its signature (the client does
// not hold the server secret) and reports the identity it carries.
// Returns ErrTokenExpired when the token is already past its expiry, so the
// transport can refuse to dial with a dead token.
func Inspect(tokenString string, now time.Time) (*Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	id := &Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		IsGuest:  claims.IsGuest,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(id.ExpiresAt) {
			return id, ErrTokenExpired
		}
	}
	return id, nil
}

// SignConfig holds signing parameters for locally minted tokens.
type SignConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Sign creates a token with the given identity. Used by tests and by the
// callcli script against local servers that share a dev secret.
func Sign(cfg *SignConfig, userID int64, username string, isGuest bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		IsGuest:  isGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}
