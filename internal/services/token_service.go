package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/models"
)

// TokenOptions controls a single token issuance
type TokenOptions struct {
	ExpiresIn time.Duration
	Kind      models.TokenKind
}

// TokenConfig holds per-kind secrets and lifetimes
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// TokenService issues and verifies kind-tagged JWTs
type TokenService interface {
	GenerateToken(identity models.Identity, opts TokenOptions) (string, error)
	GenerateTokenPair(identity models.Identity) (*models.TokenPair, error)
	VerifyToken(token string, expected models.TokenKind) (*models.Claims, error)
	DecodeToken(token string) *models.Claims
	IsTokenExpired(token string) bool
	GetTokenExpiryTime(token string) (time.Duration, bool)
	IsValidTokenFormat(token string) bool
}

type tokenService struct {
	secrets       map[models.TokenKind][]byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

// NewTokenService creates a new TokenService. A kind whose secret is empty
// is treated as unconfigured.
func NewTokenService(cfg TokenConfig) TokenService {
	secrets := make(map[models.TokenKind][]byte, 2)
	if cfg.AccessSecret != "" {
		secrets[models.TokenAccess] = []byte(cfg.AccessSecret)
	}
	if cfg.RefreshSecret != "" {
		secrets[models.TokenRefresh] = []byte(cfg.RefreshSecret)
	}

	return &tokenService{
		secrets:       secrets,
		accessExpiry:  cfg.AccessExpiry,
		refreshExpiry: cfg.RefreshExpiry,
		now:           time.Now,
	}
}

func (s *tokenService) secretFor(kind models.TokenKind) ([]byte, error) {
	secret, ok := s.secrets[kind]
	if !ok {
		return nil, apperror.New(apperror.Configuration, fmt.Sprintf("Secret not configured for token type: %s", kind))
	}
	return secret, nil
}

// GenerateToken signs identity merged with the token kind
func (s *tokenService) GenerateToken(identity models.Identity, opts TokenOptions) (string, error) {
	secret, err := s.secretFor(opts.Kind)
	if err != nil {
		return "", err
	}

	now := s.now()
	claims := models.Claims{
		Identity: identity,
		Type:     opts.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.ExpiresIn)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, "Failed to sign token", err)
	}
	return signed, nil
}

// GenerateTokenPair issues an access and a refresh token for the same identity
func (s *tokenService) GenerateTokenPair(identity models.Identity) (*models.TokenPair, error) {
	now := s.now()

	access, err := s.GenerateToken(identity, TokenOptions{ExpiresIn: s.accessExpiry, Kind: models.TokenAccess})
	if err != nil {
		return nil, err
	}
	refresh, err := s.GenerateToken(identity, TokenOptions{ExpiresIn: s.refreshExpiry, Kind: models.TokenRefresh})
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.accessExpiry),
		RefreshExpiresAt: now.Add(s.refreshExpiry),
	}, nil
}

// VerifyToken checks signature, expiry and kind
func (s *tokenService) VerifyToken(token string, expected models.TokenKind) (*models.Claims, error) {
	if token == "" {
		return nil, apperror.New(apperror.TokenMissing, "Token is required")
	}

	secret, err := s.secretFor(expected)
	if err != nil {
		return nil, err
	}

	claims := &models.Claims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Wrap(apperror.TokenExpired, "Token expired", err)
		}
		return nil, apperror.Wrap(apperror.TokenInvalid, "Invalid token signature", err)
	}

	if claims.Type != expected {
		return nil, apperror.New(apperror.TokenInvalid, fmt.Sprintf("Invalid token type. Expected: %s", expected))
	}

	return claims, nil
}

// DecodeToken reads claims without checking the signature. The result is
// for display only and must not drive authorization.
func (s *tokenService) DecodeToken(token string) *models.Claims {
	if token == "" {
		return nil
	}

	claims := &models.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// IsTokenExpired treats undecodable tokens and tokens without exp as expired
func (s *tokenService) IsTokenExpired(token string) bool {
	claims := s.DecodeToken(token)
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !s.now().Before(claims.ExpiresAt.Time)
}

// GetTokenExpiryTime returns the remaining lifetime, clamped at zero
func (s *tokenService) GetTokenExpiryTime(token string) (time.Duration, bool) {
	claims := s.DecodeToken(token)
	if claims == nil || claims.ExpiresAt == nil {
		return 0, false
	}

	remaining := claims.ExpiresAt.Time.Sub(s.now()).Truncate(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// IsValidTokenFormat is a structural pre-filter: three dot-separated segments
func (s *tokenService) IsValidTokenFormat(token string) bool {
	if token == "" {
		return false
	}
	return len(strings.Split(token, ".")) == 3
}
