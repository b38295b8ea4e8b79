package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/models"
	"github.com/aloskill/backend/internal/services"
)

// ClaimsContextKey is the gin context key holding the verified *models.Claims
const ClaimsContextKey = "user"

// RoleStrategy decides how a caller's role is matched against required roles
type RoleStrategy int

const (
	// StrategyAny passes when the caller's role is one of the required roles
	StrategyAny RoleStrategy = iota
	// StrategyAll passes when every required role equals the caller's role.
	// Users hold a single role, so this only passes for one distinct entry.
	StrategyAll
	// StrategyExact passes when the caller's role equals the first required role
	StrategyExact
)

func (s RoleStrategy) String() string {
	switch s {
	case StrategyAll:
		return "all"
	case StrategyExact:
		return "exact"
	default:
		return "any"
	}
}

// EvaluateRoles applies strategy to the caller's role
func EvaluateRoles(strategy RoleStrategy, callerRole string, required []string) bool {
	switch strategy {
	case StrategyAll:
		for _, role := range required {
			if role != callerRole {
				return false
			}
		}
		return true
	case StrategyExact:
		return len(required) > 0 && callerRole == required[0]
	default:
		for _, role := range required {
			if role == callerRole {
				return true
			}
		}
		return false
	}
}

// AuthOptions configures a single route gate
type AuthOptions struct {
	Roles       []string
	Strategy    RoleStrategy
	AllowPublic bool
}

// Authenticator builds route gates on top of the token and cookie services
type Authenticator struct {
	tokens  services.TokenService
	cookies services.CookieService
	logger  zerolog.Logger
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(tokens services.TokenService, cookies services.CookieService, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		tokens:  tokens,
		cookies: cookies,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate creates a middleware that verifies the access token and
// enforces opts. Failures are handed to the error handler unchanged.
func (a *Authenticator) Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := a.cookies.GetAccessToken(c.Request)
		if token == "" {
			if opts.AllowPublic {
				c.Next()
				return
			}
			a.fail(c, apperror.New(apperror.AuthRequired, "Authentication required"))
			return
		}

		if !a.tokens.IsValidTokenFormat(token) {
			a.fail(c, apperror.New(apperror.TokenInvalid, "Invalid token format"))
			return
		}

		claims, err := a.tokens.VerifyToken(token, models.TokenAccess)
		if err != nil {
			a.fail(c, err)
			return
		}

		c.Set(ClaimsContextKey, claims)

		if len(opts.Roles) > 0 && !EvaluateRoles(opts.Strategy, claims.Role, opts.Roles) {
			a.fail(c, apperror.New(apperror.InsufficientPermissions,
				fmt.Sprintf("Required roles: %s. Your role: %s", strings.Join(opts.Roles, ", "), claims.Role)))
			return
		}

		c.Next()
	}
}

func (a *Authenticator) fail(c *gin.Context, err error) {
	a.logger.Debug().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request rejected")
	_ = c.Error(err)
	c.Abort()
}

func roles(rs ...models.Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// RequireAuth accepts any authenticated caller
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{})
}

// RequireStudent accepts students and every role above them
func (a *Authenticator) RequireStudent() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{
		Roles:    roles(models.RoleStudent, models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
		Strategy: StrategyAny,
	})
}

// RequireInstructor accepts instructors and admins
func (a *Authenticator) RequireInstructor() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{
		Roles:    roles(models.RoleInstructor, models.RoleAdmin, models.RoleSuperAdmin),
		Strategy: StrategyAny,
	})
}

// RequireAdmin accepts admins and superadmins
func (a *Authenticator) RequireAdmin() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{
		Roles:    roles(models.RoleAdmin, models.RoleSuperAdmin),
		Strategy: StrategyAny,
	})
}

// RequireSuperAdmin accepts superadmins only
func (a *Authenticator) RequireSuperAdmin() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{
		Roles:    roles(models.RoleSuperAdmin),
		Strategy: StrategyExact,
	})
}

// OptionalAuth attaches claims when a token is present and lets anonymous
// callers through
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return a.Authenticate(AuthOptions{AllowPublic: true})
}

// CurrentClaims returns the claims attached by Authenticate
func CurrentClaims(c *gin.Context) (*models.Claims, bool) {
	value, exists := c.Get(ClaimsContextKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.Claims)
	return claims, ok
}
