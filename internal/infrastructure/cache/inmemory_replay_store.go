package cache

import (
	"context"
	"sync"
	"time"

	"github.com/courselibrary/backend/internal/domain/shared"
)

type replayEntry struct {
	payload   []byte // nil while pending
	expiresAt time.Time
}

// InMemoryReplayStore implements shared.ReplayStore with a map.
// State is per process, so it only fits single-instance deployments and tests.
type InMemoryReplayStore struct {
	mu        sync.Mutex
	entries   map[string]replayEntry
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReplayStore creates a store that sweeps expired entries every interval
func NewInMemoryReplayStore(interval time.Duration) *InMemoryReplayStore {
	s := &InMemoryReplayStore{
		entries: make(map[string]replayEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if interval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(interval)
	}
	return s
}

// Reserve implements shared.ReplayStore
func (s *InMemoryReplayStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.entries[key] = replayEntry{expiresAt: s.now().Add(ttl)}
	return true, nil
}

// Complete implements shared.ReplayStore
func (s *InMemoryReplayStore) Complete(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.entries[key] = replayEntry{payload: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

// Load implements shared.ReplayStore
func (s *InMemoryReplayStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return nil, shared.ErrReplayNotFound
	}
	return e.payload, nil
}

// Release implements shared.ReplayStore
func (s *InMemoryReplayStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryReplayStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (s *InMemoryReplayStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live returns the entry for key if it has not expired. Callers hold mu.
func (s *InMemoryReplayStore) live(key string) (replayEntry, bool) {
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return replayEntry{}, false
	}
	return e, true
}

func (s *InMemoryReplayStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryReplayStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Ensure InMemoryReplayStore implements shared.ReplayStore
var _ shared.ReplayStore = (*InMemoryReplayStore)(nil)
