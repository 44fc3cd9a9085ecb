package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/stream"
)

func newTestHub(t *testing.T, idleAfter time.Duration) *Hub {
	t.Helper()
	build := func(ctx context.Context, sessionID, personalityID string) (*Engine, error) {
		return New(ctx, Options{
			SessionID:     sessionID,
			PersonalityID: personalityID,
			Language:      "en",
			Logger:        zerolog.Nop(),
			Rand:          rand.New(rand.NewSource(1)),
			Delivery:      stream.NewDelivery(time.Millisecond, time.Millisecond, rand.New(rand.NewSource(1)), func(time.Duration) {}, nil),
		})
	}
	return NewHub(build, idleAfter, nil, zerolog.Nop())
}

func TestHubStartAndGet(t *testing.T) {
	h := newTestHub(t, time.Hour)
	ctx := context.Background()

	eng, err := h.Start(ctx, "sess-1", "friendly")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	got, err := h.Get("sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != eng {
		t.Fatalf("Get() returned different engine")
	}
	if h.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", h.ActiveCount())
	}
}

func TestHubGetUnknownSession(t *testing.T) {
	h := newTestHub(t, time.Hour)
	if _, err := h.Get("nope"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Get() error = %v, want ErrConversationNotFound", err)
	}
}

func TestHubEndRemovesConversation(t *testing.T) {
	h := newTestHub(t, time.Hour)
	ctx := context.Background()

	if _, err := h.Start(ctx, "sess-1", "friendly"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rec, err := h.End(ctx, "sess-1")
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if rec.Personality != "friendly" {
		t.Fatalf("Personality = %q, want %q", rec.Personality, "friendly")
	}
	if _, err := h.Get("sess-1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Get() after End() error = %v, want ErrConversationNotFound", err)
	}
}

func TestHubStartReplacesExisting(t *testing.T) {
	h := newTestHub(t, time.Hour)
	ctx := context.Background()

	first, err := h.Start(ctx, "sess-1", "friendly")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	second, err := h.Start(ctx, "sess-1", "calm")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if first == second {
		t.Fatalf("second Start() reused the first engine")
	}
	got, err := h.Get("sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != second {
		t.Fatalf("Get() = first engine, want replacement")
	}
	if h.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", h.ActiveCount())
	}
}

func TestHubReapsIdleConversations(t *testing.T) {
	h := newTestHub(t, time.Minute)
	ctx := context.Background()

	if _, err := h.Start(ctx, "sess-1", "friendly"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	at := time.Now()
	h.now = func() time.Time { return at.Add(2 * time.Minute) }
	h.reapIdle(ctx)
	if h.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0 after reap", h.ActiveCount())
	}
}
