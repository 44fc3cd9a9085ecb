package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type failingStore struct {
	failures int
	saves    int
}

func (f *failingStore) Load(context.Context, string) (*Session, error) { return nil, ErrNotFound }

func (f *failingStore) Save(context.Context, *Session) error {
	f.saves++
	if f.saves <= f.failures {
		return errors.New("backend unavailable")
	}
	return nil
}

func (f *failingStore) Close() error { return nil }

func newTestManager(store Store) *Manager {
	return NewManager(store, nil, zerolog.Nop())
}

func TestLoadOrCreateMissingSession(t *testing.T) {
	m := newTestManager(NewInMemoryStore())
	sess := m.LoadOrCreate(context.Background(), "sess-1")
	if sess.ID != "sess-1" {
		t.Fatalf("ID = %q, want %q", sess.ID, "sess-1")
	}
	if sess.History.TotalConversations != 0 {
		t.Fatalf("new session has history: %+v", sess.History)
	}
}

func TestLoadOrCreateResumesFreshSession(t *testing.T) {
	store := NewInMemoryStore()
	m := newTestManager(store)
	ctx := context.Background()

	s := New("sess-1")
	s.History.TotalConversations = 7
	m.Persist(ctx, s)

	got := m.LoadOrCreate(ctx, "sess-1")
	if got.History.TotalConversations != 7 {
		t.Fatalf("TotalConversations = %d, want 7", got.History.TotalConversations)
	}
}

func TestLoadOrCreateResetsStaleSession(t *testing.T) {
	store := NewInMemoryStore()
	m := newTestManager(store)
	ctx := context.Background()

	s := New("sess-1")
	s.History.TotalConversations = 7
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m.now = func() time.Time { return s.LastUpdated.Add(StaleAfter + time.Hour) }
	got := m.LoadOrCreate(ctx, "sess-1")
	if got.History.TotalConversations != 0 {
		t.Fatalf("stale session was resumed: %+v", got.History)
	}
	if got.ID != "sess-1" {
		t.Fatalf("ID = %q, want %q", got.ID, "sess-1")
	}
}

func TestPersistRetriesTransientFailures(t *testing.T) {
	store := &failingStore{failures: 2}
	m := newTestManager(store)
	m.Persist(context.Background(), New("sess-1"))
	if store.saves != 3 {
		t.Fatalf("saves = %d, want 3", store.saves)
	}
}

func TestExponentialBackoffCap(t *testing.T) {
	base := 100 * time.Millisecond
	capDur := 700 * time.Millisecond
	if got := ExponentialBackoff(0, base, capDur); got != base {
		t.Fatalf("attempt 0 = %v, want %v", got, base)
	}
	if got := ExponentialBackoff(1, base, capDur); got != 200*time.Millisecond {
		t.Fatalf("attempt 1 = %v, want 200ms", got)
	}
	if got := ExponentialBackoff(10, base, capDur); got != capDur {
		t.Fatalf("attempt 10 = %v, want %v", got, capDur)
	}
}
