package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aloskill/backend/internal/database"
	"github.com/aloskill/backend/internal/response"
)

// HealthChecker reports database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	State() database.State
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	db      HealthChecker
	version string
	started time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db HealthChecker, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, started: time.Now()}
}

// Health reports service and database status; 503 when the database is down
func (h *HealthHandler) Health(c *gin.Context) {
	data := gin.H{
		"version":  h.version,
		"uptime":   int(time.Since(h.started).Seconds()),
		"database": h.db.State().String(),
	}

	if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		data["status"] = "unhealthy"
		response.Send(c, http.StatusServiceUnavailable, "Service unavailable", data, nil)
		return
	}

	data["status"] = "healthy"
	response.OK(c, "Service healthy", data)
}
