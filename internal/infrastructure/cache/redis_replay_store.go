package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "library:idempotency:"
	// pendingMarker is stored while a request is in flight; completed
	// entries hold a JSON document and can never equal it.
	pendingMarker = ""
)

// RedisReplayStore implements shared.ReplayStore using Redis.
// It is suitable for deployments where several instances share replay state.
type RedisReplayStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisReplayStore connects to Redis and verifies the connection
func NewRedisReplayStore(ctx context.Context, opts *redis.Options) (*RedisReplayStore, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReplayStoreWithClient(client, ""), nil
}

// NewRedisReplayStoreWithClient creates a store around an existing client
func NewRedisReplayStoreWithClient(client *redis.Client, keyPrefix string) *RedisReplayStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisReplayStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Reserve implements shared.ReplayStore with SET NX
func (s *RedisReplayStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Complete implements shared.ReplayStore
func (s *RedisReplayStore) Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Load implements shared.ReplayStore
func (s *RedisReplayStore) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrReplayNotFound
		}
		return nil, fmt.Errorf("failed to load idempotent response: %w", err)
	}
	if string(payload) == pendingMarker {
		return nil, nil
	}
	return payload, nil
}

// Release implements shared.ReplayStore
func (s *RedisReplayStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisReplayStore) Close() error {
	return s.client.Close()
}

// Ensure RedisReplayStore implements shared.ReplayStore
var _ shared.ReplayStore = (*RedisReplayStore)(nil)
