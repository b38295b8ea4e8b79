// Package response writes the JSON envelope shared by every endpoint:
// {success, message, data?, meta?, timestamp}.
package response

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Meta carries pagination details
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the body of every API response
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Meta      *Meta  `json:"meta,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Timestamp formats t the way the envelope expects (UTC, millisecond precision)
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Send writes an envelope; success is derived from the status code
func Send(c *gin.Context, status int, message string, data any, meta *Meta) {
	c.JSON(status, Envelope{
		Success:   status < http.StatusBadRequest,
		Message:   message,
		Data:      data,
		Meta:      meta,
		Timestamp: Timestamp(time.Now()),
	})
}

// OK writes a 200 response
func OK(c *gin.Context, message string, data any) {
	Send(c, http.StatusOK, message, data, nil)
}

// Created writes a 201 response
func Created(c *gin.Context, message string, data any) {
	Send(c, http.StatusCreated, message, data, nil)
}

// Fail writes an error response
func Fail(c *gin.Context, status int, message string, data any) {
	Send(c, status, message, data, nil)
}

// Paginated writes a 200 response with pagination metadata
func Paginated(c *gin.Context, message string, data any, total, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	Send(c, http.StatusOK, message, data, &Meta{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	})
}
