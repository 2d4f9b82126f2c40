package shared

import (
	"context"
	"errors"
	"time"
)

// ErrReplayNotFound is returned by ReplayStore.Load for unknown keys
var ErrReplayNotFound = errors.New("replay record not found")

// ReplayStore remembers the outcome of requests carrying an idempotency key
// so a retried request can be answered without repeating its side effects.
type ReplayStore interface {
	// Reserve claims key for an in-flight request.
	// Returns false if the key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the response payload for a reserved key
	Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Load returns the stored payload. A nil payload with a nil error means
	// the key is reserved but its request has not completed yet.
	Load(ctx context.Context, key string) ([]byte, error)

	// Release forgets key so the request may be retried
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}
