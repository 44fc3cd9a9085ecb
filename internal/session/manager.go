package session

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/observability"
)

const (
	persistAttempts    = 3
	persistBackoffBase = 100 * time.Millisecond
	persistBackoffCap  = 2 * time.Second
)

// Manager mediates between the engine and the configured session store.
// Loads apply the staleness window; saves are best-effort with retry so
// a flaky backend never takes a conversation down.
type Manager struct {
	store   Store
	metrics *observability.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewManager(store Store, metrics *observability.Metrics, logger zerolog.Logger) *Manager {
	return &Manager{
		store:   store,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// LoadOrCreate returns the persisted session for id when one exists and
// is still fresh. A missing or stale record yields a brand new session
// under the same id.
func (m *Manager) LoadOrCreate(ctx context.Context, id string) *Session {
	sess, err := m.store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		m.metrics.CountSessionEvent("created")
		return New(id)
	case err != nil:
		m.logger.Warn().Err(err).Str("session_id", id).Msg("session load failed, starting fresh")
		m.metrics.CountSessionEvent("load_error")
		return New(id)
	}
	if sess.Stale(m.now()) {
		m.logger.Info().Str("session_id", id).Time("last_updated", sess.LastUpdated).Msg("session stale, starting fresh")
		m.metrics.CountSessionEvent("stale_reset")
		return New(id)
	}
	m.metrics.CountSessionEvent("resumed")
	return sess
}

// Persist saves the session, retrying transient failures. Errors are
// logged and counted but never returned; persistence is best-effort.
func (m *Manager) Persist(ctx context.Context, sess *Session) {
	sess.Touch(m.now())
	if err := SaveWithRetry(ctx, m.store, sess, persistAttempts, persistBackoffBase, persistBackoffCap); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("session persist failed")
		m.metrics.CountSessionEvent("persist_error")
		return
	}
	m.metrics.CountSessionEvent("persisted")
}

func (m *Manager) Close() error {
	return m.store.Close()
}
