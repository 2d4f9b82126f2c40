package library

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UnitOfWorkState is the lifecycle state of a unit of work
type UnitOfWorkState string

const (
	StateIdle       UnitOfWorkState = "idle"
	StateStaging    UnitOfWorkState = "staging"
	StateCommitting UnitOfWorkState = "committing"
)

// WriteFunc persists one batch atomically. authors and courses already
// carry their identities; courses includes the authors' nested courses.
type WriteFunc func(ctx context.Context, authors []*Author, courses []*Course) error

// Batch implements the staging state machine shared by UnitOfWork adapters.
// Adapters supply only the transactional write.
type Batch struct {
	Now func() time.Time

	authors []*Author
	courses []*Course
	state   UnitOfWorkState
}

// StageAuthor implements UnitOfWork
func (b *Batch) StageAuthor(author *Author) {
	b.authors = append(b.authors, author)
	b.state = StateStaging
}

// StageCourse implements UnitOfWork
func (b *Batch) StageCourse(course *Course) {
	b.courses = append(b.courses, course)
	b.state = StateStaging
}

// State implements UnitOfWork
func (b *Batch) State() UnitOfWorkState {
	if b.state == "" {
		return StateIdle
	}
	return b.state
}

// Pending implements UnitOfWork
func (b *Batch) Pending() int {
	n := len(b.courses)
	for _, a := range b.authors {
		n += 1 + len(a.Courses)
	}
	return n
}

// Discard implements UnitOfWork
func (b *Batch) Discard() {
	b.authors = nil
	b.courses = nil
	b.state = StateIdle
}

// Commit runs write over the staged entities. An empty batch succeeds
// without calling write.
func (b *Batch) Commit(ctx context.Context, write WriteFunc) error {
	defer b.Discard()

	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	if b.Pending() == 0 {
		return nil
	}

	b.state = StateCommitting
	authors, courses := b.assignIdentities()

	if err := write(ctx, authors, courses); err != nil {
		clearIdentities(authors, courses)
		var se *StorageError
		if errors.As(err, &se) {
			return se
		}
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (b *Batch) assignIdentities() ([]*Author, []*Course) {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	ts := now().UTC()

	authors := make([]*Author, len(b.authors))
	copy(authors, b.authors)
	courses := make([]*Course, 0, b.Pending()-len(authors))

	for _, a := range authors {
		a.AssignIdentity(ts)
		for _, c := range a.Courses {
			c.AssignIdentity(ts)
			c.AuthorID = a.ID
			courses = append(courses, c)
		}
	}
	for _, c := range b.courses {
		c.AssignIdentity(ts)
		courses = append(courses, c)
	}
	return authors, courses
}

func clearIdentities(authors []*Author, courses []*Course) {
	for _, a := range authors {
		a.ClearIdentity()
		for _, c := range a.Courses {
			c.AuthorID = uuid.Nil
		}
	}
	for _, c := range courses {
		c.ClearIdentity()
	}
}
