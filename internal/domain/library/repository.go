package library

import (
	"context"

	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuthorFilter narrows author listings
type AuthorFilter struct {
	shared.Filter
	MainCategory string
}

// AuthorRepository reads and removes authors. Inserts go through a UnitOfWork.
type AuthorRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Author, error)
	// FindByIDs returns the authors that exist, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Author, error)
	FindAll(ctx context.Context, filter AuthorFilter) ([]*Author, error)
	Count(ctx context.Context, filter AuthorFilter) (int64, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Delete removes the author and the author's courses
	Delete(ctx context.Context, id uuid.UUID) error
}

// CourseRepository reads, updates and removes courses of an author
type CourseRepository interface {
	FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*Course, error)
	FindForAuthor(ctx context.Context, authorID, courseID uuid.UUID) (*Course, error)
	Update(ctx context.Context, course *Course) error
	Delete(ctx context.Context, authorID, courseID uuid.UUID) error
}

// Store hands out units of work. Each request acquires its own and
// releases it when done.
type Store interface {
	NewUnitOfWork() UnitOfWork
}

// UnitOfWork stages new entities and persists them together.
//
// Commit writes everything staged since the last commit in one transaction
// and assigns identities on success. On any failure nothing is persisted,
// the staged entities are dropped, their identities are cleared, and a
// *StorageError is returned.
type UnitOfWork interface {
	// StageAuthor stages an author together with its Courses
	StageAuthor(author *Author)
	// StageCourse stages a course for an author that already exists
	StageCourse(course *Course)
	Commit(ctx context.Context) error
	// Discard drops everything staged. It is safe to call after Commit.
	Discard()
	State() UnitOfWorkState
	// Pending returns the number of staged entities, nested courses included
	Pending() int
}
