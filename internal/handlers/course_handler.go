package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/aloskill/backend/internal/middleware"
	"github.com/aloskill/backend/internal/response"
)

// CourseHandler serves the public course catalogue preview
type CourseHandler struct{}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler() *CourseHandler {
	return &CourseHandler{}
}

// Preview greets anonymous visitors and identified callers differently
func (h *CourseHandler) Preview(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.OK(c, "Course preview", gin.H{
			"authenticated": false,
			"greeting":      "Welcome! Sign in to track your progress.",
		})
		return
	}

	response.OK(c, "Course preview", gin.H{
		"authenticated": true,
		"greeting":      "Welcome back, " + claims.Email,
		"role":          claims.Role,
	})
}

// RegisterRoutes registers the course routes
func (h *CourseHandler) RegisterRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	router.GET("/courses/preview", auth.OptionalAuth(), h.Preview)
}
