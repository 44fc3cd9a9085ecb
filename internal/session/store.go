package session

import (
	"context"
	"sync"
)

// Store persists and retrieves session aggregates.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Close() error
}

// InMemoryStore is the in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]byte)}
}

func (s *InMemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Decode(data)
}

func (s *InMemoryStore) Save(_ context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = data
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
