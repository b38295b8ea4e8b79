package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aloskill/backend/internal/middleware"
	"github.com/aloskill/backend/internal/models"
	"github.com/aloskill/backend/internal/response"
	"github.com/aloskill/backend/internal/services"
)

// AuthHandler handles authentication-related endpoints
type AuthHandler struct {
	authService services.AuthService
	tokens      services.TokenService
	cookies     services.CookieService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService services.AuthService, tokens services.TokenService, cookies services.CookieService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		cookies:     cookies,
	}
}

// RegisterRequest represents the request body for user registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=6,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72,password_strength"`
	Role     string `json:"role" binding:"omitempty,oneof=student instructor"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SessionResponse is returned by register, login and refresh
type SessionResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User, pair *models.TokenPair) SessionResponse {
	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	return SessionResponse{
		User:        user,
		AccessToken: pair.AccessToken,
		ExpiresAt:   pair.AccessExpiresAt,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	user, pair, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Created(c, "Registration successful", h.startSession(c, user, pair))
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	user, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, "Login successful", h.startSession(c, user, pair))
}

// Refresh rotates both cookies using the refresh token cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	user, pair, err := h.authService.Refresh(c.Request.Context(), h.cookies.GetRefreshToken(c.Request))
	if err != nil {
		h.cookies.ClearAuthCookies(c)
		_ = c.Error(err)
		return
	}

	response.OK(c, "Token refreshed", h.startSession(c, user, pair))
}

// Logout clears the auth cookies. hadSession reports whether the request
// carried both of them.
func (h *AuthHandler) Logout(c *gin.Context) {
	had := h.cookies.HasAuthCookies(c.Request)
	h.cookies.ClearAuthCookies(c)
	response.OK(c, "Logout successful", gin.H{"hadSession": had})
}

// Me returns the verified claims of the caller and the access token's
// remaining lifetime in seconds
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		_ = c.Error(errAuthContext)
		return
	}

	data := gin.H{"user": claims.Identity}
	if remaining, ok := h.tokens.GetTokenExpiryTime(h.cookies.GetAccessToken(c.Request)); ok {
		data["expires_in"] = int(remaining.Seconds())
	}
	response.OK(c, "Authenticated", data)
}

// RegisterRoutes registers the auth routes. limiter guards the credential
// endpoints.
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator, limiter gin.HandlerFunc) {
	group := router.Group("/auth")
	{
		group.POST("/register", limiter, h.Register)
		group.POST("/login", limiter, h.Login)
		group.POST("/refresh", h.Refresh)
		group.POST("/logout", h.Logout)
		group.GET("/me", auth.RequireAuth(), h.Me)
	}
}
