package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/courses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/courses/1", "/courses/2", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/courses/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestRecordAuthFailure(t *testing.T) {
	m := New()

	m.RecordAuthFailure("TOKEN_EXPIRED")
	m.RecordAuthFailure("TOKEN_EXPIRED")
	m.RecordAuthFailure("INSUFFICIENT_PERMISSIONS")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authFailures.WithLabelValues("TOKEN_EXPIRED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authFailures.WithLabelValues("INSUFFICIENT_PERMISSIONS")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.RecordAuthFailure("TOKEN_INVALID")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `auth_failures_total{code="TOKEN_INVALID"} 1`)
}
