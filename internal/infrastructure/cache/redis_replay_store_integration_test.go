//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container and returns its config
func startRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Enabled: true, Host: host, Port: port.Int()}
}

func TestRedisReplayStore_Lifecycle(t *testing.T) {
	cfg := startRedis(t)
	ctx := context.Background()

	store, err := NewReplayStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore(ctx)
	require.NoError(t, err)
	defer store.Close()
	require.IsType(t, &RedisReplayStore{}, store)

	_, err = store.Load(ctx, "k1")
	assert.ErrorIs(t, err, shared.ErrReplayNotFound)

	ok, err := store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must lose")

	payload, err := store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, payload, "in-flight key has no payload")

	require.NoError(t, store.Complete(ctx, "k1", []byte(`[{"id":"x"}]`), time.Minute))
	payload, err = store.Load(ctx, "k1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"x"}]`, string(payload))

	require.NoError(t, store.Release(ctx, "k1"))
	_, err = store.Load(ctx, "k1")
	assert.ErrorIs(t, err, shared.ErrReplayNotFound)
}

func TestRedisReplayStore_ReservationExpires(t *testing.T) {
	cfg := startRedis(t)
	ctx := context.Background()

	store, err := NewReplayStoreFactory(cfg, WithInMemoryFallback(false)).CreateStore(ctx)
	require.NoError(t, err)
	defer store.Close()

	ok, err := store.Reserve(ctx, "short", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, err := store.Load(ctx, "short")
		return err == shared.ErrReplayNotFound
	}, 5*time.Second, 50*time.Millisecond)
}
