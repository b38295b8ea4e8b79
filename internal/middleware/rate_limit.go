package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aloskill/backend/internal/apperror"
)

// RateLimitOptions configures a sliding-window limiter
type RateLimitOptions struct {
	Limit   int
	Window  time.Duration
	Message string
	// Skip exempts matching requests from counting
	Skip func(c *gin.Context) bool
}

// rateLimiter is a simple in-memory sliding window keyed by client IP
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow records a hit for key and reports whether it fits in the window,
// how many hits remain, and when the oldest hit leaves the window.
func (l *rateLimiter) allow(key string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	// Remove timestamps older than the window
	valid := l.windows[key][:0]
	for _, t := range l.windows[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	reset := now.Add(l.window)
	if len(valid) > 0 {
		reset = valid[0].Add(l.window)
	}

	if len(valid) >= l.limit {
		l.windows[key] = valid
		return false, 0, reset
	}

	valid = append(valid, now)
	l.windows[key] = valid
	return true, l.limit - len(valid), reset
}

// sweep drops keys whose hits have all expired
func (l *rateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	for key, hits := range l.windows {
		if len(hits) == 0 || !hits[len(hits)-1].After(windowStart) {
			delete(l.windows, key)
		}
	}
}

// RateLimiter creates a middleware limiting requests per client IP and
// exposing the standard RateLimit-* headers
func RateLimiter(opts RateLimitOptions) gin.HandlerFunc {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Window <= 0 {
		opts.Window = 15 * time.Minute
	}
	if opts.Message == "" {
		opts.Message = "Too many requests, please try again later."
	}

	limiter := newRateLimiter(opts.Limit, opts.Window)
	var requests int

	return func(c *gin.Context) {
		if opts.Skip != nil && opts.Skip(c) {
			c.Next()
			return
		}

		allowed, remaining, reset := limiter.allow(c.ClientIP())

		limiter.mu.Lock()
		requests++
		sweep := requests%1000 == 0
		limiter.mu.Unlock()
		if sweep {
			limiter.sweep()
		}

		resetSecs := int(time.Until(reset).Seconds() + 0.5)
		if resetSecs < 0 {
			resetSecs = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(opts.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSecs))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(resetSecs))
			_ = c.Error(apperror.New(apperror.RateLimited, opts.Message))
			c.Abort()
			return
		}

		c.Next()
	}
}

// SkipHealth exempts the health endpoint from rate limiting
func SkipHealth(c *gin.Context) bool {
	return c.Request.URL.Path == "/health"
}
