package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aloskill/backend/config"
	"github.com/aloskill/backend/internal/database"
)

type upDatabase struct{}

func (upDatabase) HealthCheck(context.Context) error { return nil }
func (upDatabase) State() database.State             { return database.StateConnected }

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:        "production",
		Port:               8000,
		DatabaseURL:        "postgres://unused",
		FrontendURL:        "https://app.aloskill.test, https://admin.aloskill.test",
		Version:            "test",
		JWTSecret:          "app-access",
		RefreshSecret:      "app-refresh",
		AccessTokenExpiry:  "15m",
		RefreshTokenExpiry: "7d",
		BcryptCost:         4,
		RateLimit:          100,
		AuthRateLimit:      5,
		RateLimitWindow:    15 * time.Minute,
		BodyLimit:          1 << 20,
	}
	require.NoError(t, cfg.Validate())

	return NewApp(nil, upDatabase{}, cfg, zerolog.Nop())
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, allowedOrigins(" https://a.test ,, https://b.test"))
	assert.Nil(t, allowedOrigins(""))
}

func TestRouter_HealthAndHeaders(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("RateLimit-Limit"), "health is not rate limited")
}

func TestRouter_ProtectedRouteWithoutToken(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "100", w.Header().Get("RateLimit-Limit"))
	assert.Contains(t, w.Body.String(), `"message":"Authentication required"`)
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_AuthLimiter(t *testing.T) {
	app := newTestApp(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		app.Router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "Too many authentication attempts")
}

func TestRouter_MetricsCountsAuthFailures(t *testing.T) {
	app := newTestApp(t)

	app.Router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `auth_failures_total{code="AUTH_REQUIRED"} 1`), body)
}

func TestRootCmd_Version(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "aloskill version dev\n", out.String())
}
