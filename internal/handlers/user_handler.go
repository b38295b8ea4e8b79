package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/middleware"
	"github.com/aloskill/backend/internal/models"
	"github.com/aloskill/backend/internal/response"
	"github.com/aloskill/backend/internal/services"
)

// errAuthContext means a handler ran without the auth middleware in front
var errAuthContext = apperror.New(apperror.AuthRequired, "User not found in context")

// UserHandler handles user-related endpoints
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpdateRoleRequest represents the request body for changing a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=student instructor admin superadmin"`
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperror.New(apperror.BadRequest, "Invalid user ID"))
		return uuid.Nil, false
	}
	return id, true
}

// GetCurrentUser returns the stored profile of the caller
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		_ = c.Error(errAuthContext)
		return
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		_ = c.Error(apperror.Wrap(apperror.TokenInvalid, "Invalid token subject", err))
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, "User retrieved", user)
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > services.MaxPageSize {
		pageSize = 10
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Paginated(c, "Users retrieved", users, total, page, pageSize)
}

// UpdateRole changes the role of the user named in the path
func (h *UserHandler) UpdateRole(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), id, models.Role(req.Role))
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, "Role updated", user)
}

// RegisterRoutes registers the user routes
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	users := router.Group("/users")
	{
		users.GET("/me", auth.RequireStudent(), h.GetCurrentUser)
		users.GET("", auth.RequireAdmin(), h.ListUsers)
		users.PATCH("/:id/role", auth.RequireSuperAdmin(), h.UpdateRole)
	}
}
