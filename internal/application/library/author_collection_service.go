package library

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	replayKeyPrefix      = "authorcollections:"
	defaultReplayLockTTL = time.Minute
)

// ReplayRecorder is told about responses served from the replay store
type ReplayRecorder interface {
	ObserveReplay()
}

// AuthorCollectionService creates and reads batches of authors
type AuthorCollectionService struct {
	mapper   Mapper
	store    library.Store
	authors  library.AuthorRepository
	logger   *zap.Logger
	replay   shared.ReplayStore
	ttl      time.Duration
	lockTTL  time.Duration
	recorder ReplayRecorder
}

// CollectionOption configures an AuthorCollectionService
type CollectionOption func(*AuthorCollectionService)

// WithReplayStore enables idempotency keys. Completed responses are kept for ttl.
func WithReplayStore(store shared.ReplayStore, ttl time.Duration) CollectionOption {
	return func(s *AuthorCollectionService) {
		s.replay = store
		s.ttl = ttl
	}
}

// WithReplayLockTTL bounds how long a batch that never finishes, e.g. after
// a crash, keeps its idempotency key in flight
func WithReplayLockTTL(ttl time.Duration) CollectionOption {
	return func(s *AuthorCollectionService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithReplayRecorder sets the recorder notified of replayed responses
func WithReplayRecorder(r ReplayRecorder) CollectionOption {
	return func(s *AuthorCollectionService) {
		s.recorder = r
	}
}

// WithCollectionLogger sets the service logger
func WithCollectionLogger(logger *zap.Logger) CollectionOption {
	return func(s *AuthorCollectionService) {
		s.logger = logger
	}
}

// NewAuthorCollectionService creates a new AuthorCollectionService
func NewAuthorCollectionService(
	mapper Mapper,
	store library.Store,
	authors library.AuthorRepository,
	opts ...CollectionOption,
) *AuthorCollectionService {
	s := &AuthorCollectionService{
		mapper:  mapper,
		store:   store,
		authors: authors,
		logger:  zap.NewNop(),
		ttl:     24 * time.Hour,
		lockTTL: defaultReplayLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create maps, stages and commits requests as one batch and returns the
// created authors in request order.
//
// A non-empty idempotencyKey makes retries safe: a repeated key returns the
// response of the batch that first used it. While that batch is still
// running the call fails with shared.ErrIdempotencyInFlight. The key is
// released whenever the batch does not commit, including on panic.
func (s *AuthorCollectionService) Create(ctx context.Context, idempotencyKey string, requests []AuthorForCreation) (*CollectionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "author_collection", "create",
		telemetry.SpanAttrBatchSize, len(requests),
	)
	defer span.End()

	key := ""
	if idempotencyKey != "" && s.replay != nil {
		key = replayKeyPrefix + idempotencyKey
		telemetry.SetAttributes(span, telemetry.SpanAttrIdempotencyKey, idempotencyKey)

		previous, reserved, err := s.reserve(ctx, key)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if previous != nil {
			telemetry.SetAttributes(span, telemetry.SpanAttrReplayed, true)
			if s.recorder != nil {
				s.recorder.ObserveReplay()
			}
			return &CollectionResult{Authors: previous, Replayed: true}, nil
		}
		if !reserved {
			key = ""
		}
	}

	committed := false
	if key != "" {
		defer func() {
			if !committed {
				s.release(ctx, key)
			}
		}()
	}

	authors, err := s.commit(ctx, requests)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	committed = true

	result := s.mapper.ToAuthorResponses(authors)
	if key != "" {
		s.complete(ctx, key, result)
	}

	s.logger.Info("Author collection created", zap.Int("count", len(result)))
	return &CollectionResult{Authors: result}, nil
}

func (s *AuthorCollectionService) commit(ctx context.Context, requests []AuthorForCreation) ([]*library.Author, error) {
	authors, err := s.mapper.Translate(requests)
	if err != nil {
		return nil, err
	}

	uow := s.store.NewUnitOfWork()
	defer uow.Discard()

	for _, author := range authors {
		uow.StageAuthor(author)
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return authors, nil
}

// reserve claims key. It returns the stored response when key was already
// completed. reserved is false when the replay store is unavailable and the
// request runs without replay protection.
func (s *AuthorCollectionService) reserve(ctx context.Context, key string) (previous []AuthorResponse, reserved bool, err error) {
	// the record may expire between Reserve and Load; one retry covers it
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.replay.Reserve(ctx, key, s.lockTTL)
		if err != nil {
			s.logger.Warn("Replay store unavailable, continuing without idempotency", zap.Error(err))
			return nil, false, nil
		}
		if ok {
			return nil, true, nil
		}

		payload, err := s.replay.Load(ctx, key)
		switch {
		case errors.Is(err, shared.ErrReplayNotFound):
			continue
		case err != nil:
			s.logger.Warn("Replay store unavailable, continuing without idempotency", zap.Error(err))
			return nil, false, nil
		case payload == nil:
			return nil, false, shared.ErrIdempotencyInFlight
		}

		previous = []AuthorResponse{}
		if err := json.Unmarshal(payload, &previous); err != nil {
			s.logger.Error("Corrupt replay record", zap.String("key", key), zap.Error(err))
			return nil, false, err
		}
		return previous, false, nil
	}
	return nil, false, shared.ErrIdempotencyInFlight
}

func (s *AuthorCollectionService) complete(ctx context.Context, key string, result []AuthorResponse) {
	payload, err := json.Marshal(result)
	if err == nil {
		err = s.replay.Complete(ctx, key, payload, s.ttl)
	}
	if err != nil {
		s.logger.Warn("Failed to store replay record", zap.String("key", key), zap.Error(err))
	}
}

func (s *AuthorCollectionService) release(ctx context.Context, key string) {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.replay.Release(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

// Get returns the authors with ids, in the order given. It fails with
// library.ErrAuthorNotFound if any of them does not exist.
func (s *AuthorCollectionService) Get(ctx context.Context, ids []uuid.UUID) ([]AuthorResponse, error) {
	if len(ids) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "At least one author id is required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "author_collection", "get",
		telemetry.SpanAttrBatchSize, len(ids),
	)
	defer span.End()

	found, err := s.authors.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	byID := make(map[uuid.UUID]*library.Author, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	ordered := make([]*library.Author, len(ids))
	for i, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, library.ErrAuthorNotFound
		}
		ordered[i] = a
	}
	return s.mapper.ToAuthorResponses(ordered), nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
