package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/cache"
	"github.com/courselibrary/backend/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of library.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) NewUnitOfWork() library.UnitOfWork {
	args := m.Called()
	return args.Get(0).(library.UnitOfWork)
}

// MockReplayStore is a mock implementation of shared.ReplayStore
type MockReplayStore struct {
	mock.Mock
}

func (m *MockReplayStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockReplayStore) Complete(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, payload, ttl)
	return args.Error(0)
}

func (m *MockReplayStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockReplayStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockReplayStore) Close() error {
	return m.Called().Error(0)
}

type countingRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *countingRecorder) ObserveReplay() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

// panickingStore panics on the first panics calls to NewUnitOfWork
type panickingStore struct {
	*memory.Store
	panics int
}

func (p *panickingStore) NewUnitOfWork() library.UnitOfWork {
	if p.panics > 0 {
		p.panics--
		panic("unit of work unavailable")
	}
	return p.Store.NewUnitOfWork()
}

func newCollectionService(t *testing.T, opts ...CollectionOption) (*AuthorCollectionService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewAuthorCollectionService(NewStructMapper(), store, store.Authors(), opts...), store
}

func TestAuthorCollectionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates every author in order", func(t *testing.T) {
		svc, store := newCollectionService(t)

		result, err := svc.Create(ctx, "", []AuthorForCreation{
			{FirstName: "Jane", LastName: "Doe"},
			{FirstName: "John", LastName: "Roe", Courses: []CourseForCreation{{Title: "Go"}}},
		})
		require.NoError(t, err)
		require.Len(t, result.Authors, 2)
		assert.False(t, result.Replayed)
		assert.Equal(t, "Jane Doe", result.Authors[0].Name)
		assert.Equal(t, "John Roe", result.Authors[1].Name)
		assert.NotEqual(t, uuid.Nil, result.Authors[0].ID)
		require.Len(t, result.Authors[1].Courses, 1)
		assert.Equal(t, result.Authors[1].ID, result.Authors[1].Courses[0].AuthorID)

		assert.Equal(t, 2, store.AuthorCount())
		assert.Equal(t, 1, store.CourseCount())
	})

	t.Run("jane doe gets an identity", func(t *testing.T) {
		svc, store := newCollectionService(t)

		result, err := svc.Create(ctx, "", []AuthorForCreation{{FirstName: "Jane", LastName: "Doe"}})
		require.NoError(t, err)
		require.Len(t, result.Authors, 1)

		found, err := store.Authors().FindByID(ctx, result.Authors[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "Doe", found.LastName)
	})

	t.Run("empty input succeeds with empty output", func(t *testing.T) {
		svc, store := newCollectionService(t)

		result, err := svc.Create(ctx, "", []AuthorForCreation{})
		require.NoError(t, err)
		assert.NotNil(t, result.Authors)
		assert.Empty(t, result.Authors)
		assert.Zero(t, store.Commits())
	})

	t.Run("invalid element persists nothing", func(t *testing.T) {
		mockStore := new(MockStore)
		svc := NewAuthorCollectionService(NewStructMapper(), mockStore, memory.NewStore().Authors())

		_, err := svc.Create(ctx, "", []AuthorForCreation{
			{FirstName: "Jane", LastName: "Doe"},
			{FirstName: "John"},
		})
		var me *library.MappingError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, "[1].lastName", me.Violations[0].Field)
		mockStore.AssertNotCalled(t, "NewUnitOfWork")
	})

	t.Run("commit failure persists nothing", func(t *testing.T) {
		svc, store := newCollectionService(t)
		store.FailNextCommit(errors.New("connection reset"))

		result, err := svc.Create(ctx, "", []AuthorForCreation{
			{FirstName: "Jane", LastName: "Doe"},
			{FirstName: "John", LastName: "Roe"},
		})
		assert.Nil(t, result)
		var se *library.StorageError
		require.ErrorAs(t, err, &se)
		assert.Zero(t, store.AuthorCount())
	})

	t.Run("cancelled context persists nothing", func(t *testing.T) {
		svc, store := newCollectionService(t)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.Create(cancelled, "", []AuthorForCreation{{FirstName: "Jane", LastName: "Doe"}})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, store.AuthorCount())
	})
}

func TestAuthorCollectionService_Create_Idempotency(t *testing.T) {
	ctx := context.Background()
	batch := []AuthorForCreation{{FirstName: "Jane", LastName: "Doe"}}

	t.Run("replays the first response", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		recorder := &countingRecorder{}
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour), WithReplayRecorder(recorder))

		first, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		second, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)

		assert.True(t, second.Replayed)
		assert.Equal(t, first.Authors[0].ID, second.Authors[0].ID)
		assert.Equal(t, first.Authors[0].Name, second.Authors[0].Name)
		assert.Equal(t, 1, store.AuthorCount())
		assert.Equal(t, 1, recorder.count)
	})

	t.Run("different keys insert twice", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))

		_, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		_, err = svc.Create(ctx, "key-2", batch)
		require.NoError(t, err)
		assert.Equal(t, 2, store.AuthorCount())
	})

	t.Run("in-flight key conflicts", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		ok, err := replay.Reserve(ctx, replayKeyPrefix+"key-1", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))

		_, err = svc.Create(ctx, "key-1", batch)
		assert.ErrorIs(t, err, shared.ErrIdempotencyInFlight)
		assert.Zero(t, store.AuthorCount())
	})

	t.Run("failed batch releases the key", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))
		store.FailNextCommit(errors.New("disk full"))

		_, err := svc.Create(ctx, "key-1", batch)
		require.Error(t, err)

		result, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		assert.False(t, result.Replayed)
		assert.Equal(t, 1, store.AuthorCount())
	})

	t.Run("mapping error releases the key", func(t *testing.T) {
		replay := new(MockReplayStore)
		replay.On("Reserve", mock.Anything, replayKeyPrefix+"key-1", defaultReplayLockTTL).Return(true, nil)
		replay.On("Release", mock.Anything, replayKeyPrefix+"key-1").Return(nil)
		svc, _ := newCollectionService(t, WithReplayStore(replay, time.Hour))

		_, err := svc.Create(ctx, "key-1", []AuthorForCreation{{FirstName: "Jane"}})
		var me *library.MappingError
		require.ErrorAs(t, err, &me)
		replay.AssertExpectations(t)
		replay.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unavailable replay store does not block creation", func(t *testing.T) {
		replay := new(MockReplayStore)
		replay.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))

		result, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		assert.Len(t, result.Authors, 1)
		assert.Equal(t, 1, store.AuthorCount())
		replay.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired record is reserved again", func(t *testing.T) {
		replay := new(MockReplayStore)
		replay.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
		replay.On("Load", mock.Anything, mock.Anything).Return(nil, shared.ErrReplayNotFound).Once()
		replay.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
		replay.On("Complete", mock.Anything, replayKeyPrefix+"key-1", mock.Anything, time.Hour).Return(nil)
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))

		_, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		assert.Equal(t, 1, store.AuthorCount())
		replay.AssertExpectations(t)
	})

	t.Run("panicking batch releases the key", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		store := memory.NewStore()
		flaky := &panickingStore{Store: store, panics: 1}
		svc := NewAuthorCollectionService(NewStructMapper(), flaky, store.Authors(), WithReplayStore(replay, time.Hour))

		assert.Panics(t, func() { _, _ = svc.Create(ctx, "key-1", batch) })

		result, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		assert.False(t, result.Replayed)
		assert.Equal(t, 1, store.AuthorCount())
	})

	t.Run("pending key uses the lock ttl", func(t *testing.T) {
		replay := new(MockReplayStore)
		replay.On("Reserve", mock.Anything, replayKeyPrefix+"key-1", 30*time.Second).Return(true, nil)
		replay.On("Complete", mock.Anything, replayKeyPrefix+"key-1", mock.Anything, time.Hour).Return(nil)
		svc, _ := newCollectionService(t, WithReplayStore(replay, time.Hour), WithReplayLockTTL(30*time.Second))

		_, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		replay.AssertExpectations(t)
		replay.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("abandoned reservation expires after the lock ttl", func(t *testing.T) {
		replay := cache.NewInMemoryReplayStore(time.Minute)
		defer replay.Close()
		ok, err := replay.Reserve(ctx, replayKeyPrefix+"key-1", 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		svc, store := newCollectionService(t, WithReplayStore(replay, time.Hour))

		_, err = svc.Create(ctx, "key-1", batch)
		require.ErrorIs(t, err, shared.ErrIdempotencyInFlight)

		require.Eventually(t, func() bool {
			_, err := svc.Create(ctx, "key-1", batch)
			return err == nil
		}, 2*time.Second, 20*time.Millisecond)
		assert.Equal(t, 1, store.AuthorCount())
	})

	t.Run("key is ignored without a replay store", func(t *testing.T) {
		svc, store := newCollectionService(t)

		_, err := svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		_, err = svc.Create(ctx, "key-1", batch)
		require.NoError(t, err)
		assert.Equal(t, 2, store.AuthorCount())
	})
}

func TestAuthorCollectionService_Get(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCollectionService(t)

	created, err := svc.Create(ctx, "", []AuthorForCreation{
		{FirstName: "Jane", LastName: "Doe"},
		{FirstName: "John", LastName: "Roe"},
	})
	require.NoError(t, err)
	jane, john := created.Authors[0].ID, created.Authors[1].ID

	t.Run("returns authors in request order", func(t *testing.T) {
		got, err := svc.Get(ctx, []uuid.UUID{john, jane, john})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, john, got[0].ID)
		assert.Equal(t, jane, got[1].ID)
		assert.Equal(t, john, got[2].ID)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := svc.Get(ctx, []uuid.UUID{jane, uuid.New()})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("no ids is invalid", func(t *testing.T) {
		_, err := svc.Get(ctx, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
