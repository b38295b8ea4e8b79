package services

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookie names used for the token pair
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

const bearerPrefix = "Bearer "

// CookieConfig holds the attributes shared by the auth cookies. Cookies are
// always HTTP-only.
type CookieConfig struct {
	Secure        bool
	SameSite      http.SameSite
	Path          string
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// NewCookieConfig derives cookie attributes from the environment. Production
// gets Secure + SameSite=Strict; anything else relaxes to Lax so the frontend
// can run on another local port.
func NewCookieConfig(environment, domain string, accessTTL, refreshTTL time.Duration) CookieConfig {
	production := strings.EqualFold(environment, "production")
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteStrictMode
	}

	return CookieConfig{
		Secure:        production,
		SameSite:      sameSite,
		Path:          "/",
		Domain:        domain,
		AccessMaxAge:  accessTTL,
		RefreshMaxAge: refreshTTL,
	}
}

// CookieService reads and writes the auth cookies
type CookieService interface {
	SetAuthCookies(c *gin.Context, accessToken, refreshToken string)
	ClearAuthCookies(c *gin.Context)
	GetAccessToken(r *http.Request) string
	GetRefreshToken(r *http.Request) string
	HasAuthCookies(r *http.Request) bool
}

type cookieService struct {
	config CookieConfig
}

// NewCookieService creates a new CookieService
func NewCookieService(config CookieConfig) CookieService {
	if config.Path == "" {
		config.Path = "/"
	}
	return &cookieService{config: config}
}

// setCookie writes one cookie. maxAge follows net/http: negative emits
// Max-Age=0.
func (s *cookieService) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(s.config.SameSite)
	c.SetCookie(
		name,
		value,
		maxAge,
		s.config.Path,
		s.config.Domain,
		s.config.Secure,
		true, // HTTP only
	)
}

// SetAuthCookies stores both tokens with per-kind max-age
func (s *cookieService) SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	s.setCookie(c, AccessCookieName, accessToken, int(s.config.AccessMaxAge.Seconds()))
	s.setCookie(c, RefreshCookieName, refreshToken, int(s.config.RefreshMaxAge.Seconds()))
}

// ClearAuthCookies overwrites both cookies so the client drops them immediately
func (s *cookieService) ClearAuthCookies(c *gin.Context) {
	s.setCookie(c, AccessCookieName, "", -1)
	s.setCookie(c, RefreshCookieName, "", -1)
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetAccessToken prefers the cookie and falls back to a bearer header
func (s *cookieService) GetAccessToken(r *http.Request) string {
	if token := cookieValue(r, AccessCookieName); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimSpace(authHeader[len(bearerPrefix):])
	}
	return ""
}

// GetRefreshToken reads the refresh cookie only
func (s *cookieService) GetRefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookieName)
}

// HasAuthCookies reports whether both auth cookies are present
func (s *cookieService) HasAuthCookies(r *http.Request) bool {
	return cookieValue(r, AccessCookieName) != "" && cookieValue(r, RefreshCookieName) != ""
}
