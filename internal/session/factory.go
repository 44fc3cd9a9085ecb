package session

import (
	"context"
	"strings"
)

// NewStore picks a backend from the store URL: postgres:// and redis://
// select their drivers, any other non-empty value is treated as a
// filesystem directory, and empty means in-memory.
func NewStore(ctx context.Context, storeURL string) (Store, error) {
	storeURL = strings.TrimSpace(storeURL)
	switch {
	case storeURL == "":
		return NewInMemoryStore(), nil
	case strings.HasPrefix(storeURL, "postgres://") || strings.HasPrefix(storeURL, "postgresql://"):
		return NewPostgresStore(ctx, storeURL)
	case strings.HasPrefix(storeURL, "redis://") || strings.HasPrefix(storeURL, "rediss://"):
		return NewRedisStore(ctx, storeURL)
	default:
		return NewFileStore(storeURL)
	}
}
