package persistence

import (
	"context"

	"github.com/courselibrary/backend/internal/domain/library"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// GormStore implements library.Store on top of a GORM connection
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// NewUnitOfWork implements library.Store
func (s *GormStore) NewUnitOfWork() library.UnitOfWork {
	return &gormUnitOfWork{db: s.db}
}

type gormUnitOfWork struct {
	library.Batch
	db *gorm.DB
}

func (u *gormUnitOfWork) Commit(ctx context.Context) error {
	return u.Batch.Commit(ctx, u.write)
}

// write inserts authors before courses so foreign keys resolve inside the transaction
func (u *gormUnitOfWork) write(ctx context.Context, authors []*library.Author, courses []*library.Course) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(authors) > 0 {
			if err := tx.CreateInBatches(authors, insertBatchSize).Error; err != nil {
				return &library.StorageError{Op: "insert authors", Err: err}
			}
		}
		if len(courses) > 0 {
			if err := tx.CreateInBatches(courses, insertBatchSize).Error; err != nil {
				return &library.StorageError{Op: "insert courses", Err: err}
			}
		}
		return nil
	})
}

var (
	_ library.Store      = (*GormStore)(nil)
	_ library.UnitOfWork = (*gormUnitOfWork)(nil)
)
