package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/aloskill/backend/internal/apperror"
	"github.com/aloskill/backend/internal/response"
)

// Issue describes one failed validation rule
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// AuthFailureRecorder counts rejected authentication attempts by error code
type AuthFailureRecorder interface {
	RecordAuthFailure(code string)
}

// ErrorHandler renders the last error recorded on the context. It is the
// only place where errors are turned into responses.
func ErrorHandler(logger zerolog.Logger, production bool, recorder AuthFailureRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		status, message, data := classify(err, production)

		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Msg(message)

		if recorder != nil {
			if appErr, ok := apperror.As(err); ok && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
				recorder.RecordAuthFailure(appErr.Code())
			}
		}

		response.Fail(c, status, message, data)
	}
}

func classify(err error, production bool) (int, string, any) {
	var (
		validationErrs validator.ValidationErrors
		syntaxErr      *json.SyntaxError
		typeErr        *json.UnmarshalTypeError
		maxBytesErr    *http.MaxBytesError
		pqErr          *pq.Error
	)

	if appErr, ok := apperror.As(err); ok {
		message := appErr.Message
		if production && (appErr.Kind == apperror.Internal || appErr.Kind == apperror.Configuration) {
			message = "Internal server error"
		}
		return appErr.Status(), message, nil
	}

	switch {
	case errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity, "Validation failed", gin.H{"errors": issues(validationErrs)}
	case errors.As(err, &maxBytesErr):
		return apperror.PayloadTooLarge.Status(), "Request body too large", nil
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "Invalid request body", nil
	case errors.As(err, &pqErr):
		return http.StatusBadRequest, "Database operation failed", nil
	}

	if production {
		return http.StatusInternalServerError, "Internal server error", nil
	}
	return http.StatusInternalServerError, err.Error(), nil
}

func issues(errs validator.ValidationErrors) []Issue {
	out := make([]Issue, 0, len(errs))
	for _, fe := range errs {
		out = append(out, Issue{
			Path:    fe.Field(),
			Message: issueMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "password_strength":
		return "Password must contain at least one uppercase letter, one lowercase letter and one number"
	case "uuid":
		return fe.Field() + " must be a valid UUID"
	}
	return fe.Field() + " is invalid"
}

// NotFound answers unmatched routes through the shared envelope
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Route not found: "+c.Request.Method+" "+c.Request.URL.Path, nil)
	}
}

// Recovery turns panics into a 500 envelope
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().
			Interface("panic", recovered).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("panic recovered")
		response.Fail(c, http.StatusInternalServerError, "Internal server error", nil)
		c.Abort()
	})
}
