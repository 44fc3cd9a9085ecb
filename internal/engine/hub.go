package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/observability"
	"github.com/kestrelhq/kestrel/internal/session"
)

// ErrConversationNotFound is returned for lookups of unknown or already
// ended conversations.
var ErrConversationNotFound = fmt.Errorf("conversation not found")

// Hub tracks the active engine per session and reaps idle conversations.
// One engine drives one conversation; starting a new conversation for a
// session ends the previous one.
type Hub struct {
	build     func(ctx context.Context, sessionID, personalityID string) (*Engine, error)
	idleAfter time.Duration
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	active map[string]*hubEntry
}

type hubEntry struct {
	eng          *Engine
	lastActivity time.Time
}

func NewHub(build func(ctx context.Context, sessionID, personalityID string) (*Engine, error), idleAfter time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		build:     build,
		idleAfter: idleAfter,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		active:    make(map[string]*hubEntry),
	}
}

// Start creates (or replaces) the conversation for a session.
func (h *Hub) Start(ctx context.Context, sessionID, personalityID string) (*Engine, error) {
	eng, err := h.build(ctx, sessionID, personalityID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	prev, had := h.active[eng.SessionID()]
	h.active[eng.SessionID()] = &hubEntry{eng: eng, lastActivity: h.now()}
	count := len(h.active)
	h.mu.Unlock()

	if had {
		h.logger.Info().Str("session_id", eng.SessionID()).Msg("replacing active conversation")
		prev.eng.EndConversation(ctx)
	}
	h.metrics.SetActiveConversations(count)
	return eng, nil
}

// Get returns the active engine for a session and marks it live.
func (h *Hub) Get(sessionID string) (*Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.active[sessionID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	entry.lastActivity = h.now()
	return entry.eng, nil
}

// End finishes the conversation and returns the session recommendations.
func (h *Hub) End(ctx context.Context, sessionID string) (session.Recommendations, error) {
	h.mu.Lock()
	entry, ok := h.active[sessionID]
	if ok {
		delete(h.active, sessionID)
	}
	count := len(h.active)
	h.mu.Unlock()

	if !ok {
		return session.Recommendations{}, ErrConversationNotFound
	}
	h.metrics.SetActiveConversations(count)
	return entry.eng.EndConversation(ctx), nil
}

// ActiveCount reports the number of live conversations.
func (h *Hub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

// RunJanitor reaps conversations idle past the configured window until
// the context is cancelled.
func (h *Hub) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reapIdle(ctx)
		}
	}
}

func (h *Hub) reapIdle(ctx context.Context) {
	if h.idleAfter <= 0 {
		return
	}
	cutoff := h.now().Add(-h.idleAfter)

	h.mu.Lock()
	var expired []*hubEntry
	for id, entry := range h.active {
		if entry.lastActivity.Before(cutoff) {
			expired = append(expired, entry)
			delete(h.active, id)
		}
	}
	count := len(h.active)
	h.mu.Unlock()

	for _, entry := range expired {
		h.logger.Info().Str("session_id", entry.eng.SessionID()).Msg("ending idle conversation")
		entry.eng.EndConversation(ctx)
		h.metrics.CountSessionEvent("idle_reaped")
	}
	if len(expired) > 0 {
		h.metrics.SetActiveConversations(count)
	}
}
