// Package database owns the single connection pool of the process.
//
// The Manager is a small state machine:
//
//	Disconnected -> Connecting -> Connected
//	Connected -> Reconnecting -> Connected | Error
//	Connecting -> Error (after MaxRetries attempts)
//
// The pool is opened once and handed explicitly to repositories; nothing
// here is global. Reconnecting pings that same pool until it answers again.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
)

// State is the connection state of a Manager
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned when the pool is requested before Connect succeeded
var ErrNotConnected = errors.New("database not connected")

// Opener opens and pings a pool
type Opener func(ctx context.Context, driver, dsn string) (*sqlx.DB, error)

// Options configures a Manager
type Options struct {
	Driver          string
	DSN             string
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	PingTimeout     time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// Open replaces sqlx.ConnectContext, mainly for tests
	Open Opener
}

func (o *Options) setDefaults() {
	if o.Driver == "" {
		o.Driver = "postgres"
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 25
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 5 * time.Minute
	}
	if o.Open == nil {
		o.Open = sqlx.ConnectContext
	}
}

// Manager connects, monitors and reconnects the database pool
type Manager struct {
	opts   Options
	logger zerolog.Logger

	mu    sync.RWMutex
	db    *sqlx.DB
	state State
	// sleep waits for d or until ctx is done; swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
	ping  func(ctx context.Context, db *sqlx.DB) error
}

// NewManager creates a new Manager in the disconnected state
func NewManager(opts Options, logger zerolog.Logger) *Manager {
	opts.setDefaults()
	return &Manager{
		opts:   opts,
		logger: logger.With().Str("component", "database").Logger(),
		state:  StateDisconnected,
		sleep:  sleepContext,
		ping:   pingContext,
	}
}

func pingContext(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Info().Str("from", prev.String()).Str("to", s.String()).Msg("database state changed")
	}
}

// DB returns the pool or ErrNotConnected
func (m *Manager) DB() (*sqlx.DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.db == nil || m.state != StateConnected {
		return nil, ErrNotConnected
	}
	return m.db, nil
}

// backoff returns BaseDelay * 2^attempt capped at MaxDelay
func (m *Manager) backoff(attempt int) time.Duration {
	d := m.opts.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= m.opts.MaxDelay {
			return m.opts.MaxDelay
		}
	}
	return d
}

// Connect opens the pool, retrying with exponential backoff
func (m *Manager) Connect(ctx context.Context) error {
	m.setState(StateConnecting)
	return m.dial(ctx)
}

func (m *Manager) dial(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		db, err := m.opts.Open(ctx, m.opts.Driver, m.opts.DSN)
		if err == nil {
			db.SetMaxOpenConns(m.opts.MaxOpenConns)
			db.SetMaxIdleConns(m.opts.MaxIdleConns)
			db.SetConnMaxLifetime(m.opts.ConnMaxLifetime)

			m.mu.Lock()
			m.db = db
			m.mu.Unlock()

			m.setState(StateConnected)
			return nil
		}

		lastErr = err
		delay := m.backoff(attempt)
		m.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", m.opts.MaxRetries).
			Dur("retry_in", delay).
			Msg("database connection failed")

		if attempt == m.opts.MaxRetries-1 {
			break
		}
		if err := m.sleep(ctx, delay); err != nil {
			m.setState(StateError)
			return fmt.Errorf("connect cancelled: %w", err)
		}
	}

	m.setState(StateError)
	return fmt.Errorf("failed to connect after %d attempts: %w", m.opts.MaxRetries, lastErr)
}

// HealthCheck pings the pool within the configured timeout
func (m *Manager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	db := m.db
	m.mu.RUnlock()
	if db == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.PingTimeout)
	defer cancel()
	return m.ping(ctx, db)
}

// Monitor health-checks the pool every interval and starts reconnecting
// after a failed check. It returns when ctx is done.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAndRecover(ctx)
		}
	}
}

func (m *Manager) checkAndRecover(ctx context.Context) {
	err := m.HealthCheck(ctx)
	if err == nil {
		if m.State() != StateConnected {
			m.setState(StateConnected)
		}
		return
	}

	m.logger.Error().Err(err).Msg("database health check failed")
	if errors.Is(err, ErrNotConnected) {
		m.setState(StateConnecting)
		if err := m.dial(ctx); err != nil {
			m.logger.Error().Err(err).Msg("database reconnect failed")
		}
		return
	}

	m.setState(StateReconnecting)
	if err := m.reconnect(ctx); err != nil {
		m.logger.Error().Err(err).Msg("database reconnect failed")
	}
}

// reconnect pings the existing pool with backoff until it answers. The pool
// itself is kept: callers hold it and database/sql redials on its own.
func (m *Manager) reconnect(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := m.sleep(ctx, m.backoff(attempt-1)); err != nil {
				m.setState(StateError)
				return fmt.Errorf("reconnect cancelled: %w", err)
			}
		}

		lastErr = m.HealthCheck(ctx)
		if lastErr == nil {
			m.setState(StateConnected)
			return nil
		}
		m.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt+1).
			Int("max_retries", m.opts.MaxRetries).
			Msg("database ping failed")
	}

	m.setState(StateError)
	return fmt.Errorf("database unreachable after %d attempts: %w", m.opts.MaxRetries, lastErr)
}

// Close closes the pool and moves back to disconnected
func (m *Manager) Close() error {
	m.mu.Lock()
	db := m.db
	m.db = nil
	m.mu.Unlock()

	m.setState(StateDisconnected)
	if db == nil {
		return nil
	}
	return db.Close()
}
