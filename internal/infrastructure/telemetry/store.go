package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
)

// InstrumentStore wraps store so that every commit is traced and counted.
// A nil metrics only traces.
func InstrumentStore(store library.Store, metrics *Metrics) library.Store {
	return &instrumentedStore{next: store, metrics: metrics}
}

type instrumentedStore struct {
	next    library.Store
	metrics *Metrics
}

func (s *instrumentedStore) NewUnitOfWork() library.UnitOfWork {
	return &instrumentedUnitOfWork{UnitOfWork: s.next.NewUnitOfWork(), metrics: s.metrics}
}

type instrumentedUnitOfWork struct {
	library.UnitOfWork
	metrics *Metrics
}

func (u *instrumentedUnitOfWork) Commit(ctx context.Context) error {
	size := u.Pending()
	ctx, span := StartSpan(ctx, "unit_of_work.commit", SpanAttrBatchSize, size)
	defer span.End()

	start := time.Now()
	err := u.UnitOfWork.Commit(ctx)

	outcome := CommitSuccess
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = CommitCanceled
		RecordError(span, err)
	case err != nil:
		outcome = CommitFailure
		RecordError(span, err)
	}
	if u.metrics != nil {
		u.metrics.ObserveCommit(ctx, outcome, size, time.Since(start))
	}
	return err
}
