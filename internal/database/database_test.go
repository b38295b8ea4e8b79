package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLiteManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(Options{Driver: "sqlite", DSN: ":memory:", MaxRetries: 2, BaseDelay: time.Millisecond}, zerolog.Nop())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_ConnectAndClose(t *testing.T) {
	m := newSQLiteManager(t)
	assert.Equal(t, StateDisconnected, m.State())

	_, err := m.DB()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, m.Connect(context.Background()))
	assert.Equal(t, StateConnected, m.State())

	db, err := m.DB()
	require.NoError(t, err)
	var one int
	require.NoError(t, db.Get(&one, "SELECT 1"))
	assert.Equal(t, 1, one)

	assert.NoError(t, m.HealthCheck(context.Background()))

	require.NoError(t, m.Close())
	assert.Equal(t, StateDisconnected, m.State())
	assert.ErrorIs(t, m.HealthCheck(context.Background()), ErrNotConnected)
}

func TestManager_RetriesWithBackoff(t *testing.T) {
	attempts := 0
	dialErr := errors.New("connection refused")
	m := NewManager(Options{
		MaxRetries: 4,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
		Open: func(context.Context, string, string) (*sqlx.DB, error) {
			attempts++
			return nil, dialErr
		},
	}, zerolog.Nop())

	var delays []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond}, delays)
	assert.Equal(t, StateError, m.State())
}

func TestManager_ConnectCancelled(t *testing.T) {
	m := NewManager(Options{
		MaxRetries: 3,
		BaseDelay:  time.Hour,
		Open: func(context.Context, string, string) (*sqlx.DB, error) {
			return nil, errors.New("down")
		},
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Connect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateError, m.State())
}

func TestManager_RecoversAfterFailedHealthCheck(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Connect(context.Background()))

	handed, err := m.DB()
	require.NoError(t, err)

	outage := errors.New("connection reset by peer")
	failures := 2
	m.ping = func(ctx context.Context, db *sqlx.DB) error {
		if failures > 0 {
			failures--
			return outage
		}
		return db.PingContext(ctx)
	}
	var delays []time.Duration
	m.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	m.checkAndRecover(context.Background())

	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, []time.Duration{time.Millisecond}, delays)

	current, err := m.DB()
	require.NoError(t, err)
	assert.Same(t, handed, current, "reconnect keeps the pool repositories already hold")

	var one int
	require.NoError(t, handed.Get(&one, "SELECT 1"))
	assert.Equal(t, 1, one)
}

func TestManager_ReconnectGivesUpAfterMaxRetries(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Connect(context.Background()))
	handed, err := m.DB()
	require.NoError(t, err)

	m.ping = func(context.Context, *sqlx.DB) error { return errors.New("down") }
	m.sleep = func(context.Context, time.Duration) error { return nil }

	m.checkAndRecover(context.Background())
	assert.Equal(t, StateError, m.State())
	_, err = m.DB()
	assert.ErrorIs(t, err, ErrNotConnected)

	m.ping = pingContext
	m.checkAndRecover(context.Background())
	assert.Equal(t, StateConnected, m.State())

	current, err := m.DB()
	require.NoError(t, err)
	assert.Same(t, handed, current)
}

func TestManager_ReconnectCancelled(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Connect(context.Background()))
	m.ping = func(context.Context, *sqlx.DB) error { return errors.New("down") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.checkAndRecover(ctx)

	assert.Equal(t, StateError, m.State())
}

func TestManager_MonitorStopsWithContext(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Monitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, StateConnected, m.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "error", StateError.String())
}
