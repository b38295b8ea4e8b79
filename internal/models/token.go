package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a token with its intended use
type TokenKind string

const (
	TokenAccess  TokenKind = "ACCESS"
	TokenRefresh TokenKind = "REFRESH"
)

// Identity is the caller-supplied part of a token payload
type Identity struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Claims is the full payload of a signed token. iat and exp come from the
// embedded registered claims.
type Claims struct {
	Identity
	Type TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"-"` // Never sent directly, stored in HTTP-only cookie
	AccessExpiresAt  time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"-"`
}
