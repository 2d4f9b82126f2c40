package library

import (
	"context"
	"testing"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCourseFixture(t *testing.T) (*CourseService, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	mapper := NewStructMapper()

	author, err := NewAuthorService(mapper, store, store.Authors()).Create(context.Background(),
		AuthorForCreation{FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)

	return NewCourseService(mapper, store, store.Authors(), store.Courses()), store, author.ID
}

func TestCourseService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store, authorID := newCourseFixture(t)

	created, err := svc.CreateForAuthor(ctx, authorID, CourseForCreation{Title: "Go", Description: "Basics"})
	require.NoError(t, err)
	assert.Equal(t, authorID, created.AuthorID)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, 1, store.CourseCount())

	list, err := svc.ListForAuthor(ctx, authorID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	updated, err := svc.Update(ctx, authorID, created.ID, CourseForUpdate{Title: " Advanced Go "})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", updated.Title)
	assert.Empty(t, updated.Description)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := svc.GetForAuthor(ctx, authorID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Go", got.Title)

	require.NoError(t, svc.Delete(ctx, authorID, created.ID))
	assert.Zero(t, store.CourseCount())
	assert.ErrorIs(t, svc.Delete(ctx, authorID, created.ID), shared.ErrNotFound)
}

func TestCourseService_UnknownAuthor(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCourseFixture(t)
	unknown := uuid.New()

	_, err := svc.ListForAuthor(ctx, unknown)
	assert.ErrorIs(t, err, library.ErrAuthorNotFound)
	_, err = svc.CreateForAuthor(ctx, unknown, CourseForCreation{Title: "Go"})
	assert.ErrorIs(t, err, library.ErrAuthorNotFound)
	_, err = svc.GetForAuthor(ctx, unknown, uuid.New())
	assert.ErrorIs(t, err, library.ErrAuthorNotFound)
}

func TestCourseService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store, authorID := newCourseFixture(t)

	_, err := svc.CreateForAuthor(ctx, authorID, CourseForCreation{})
	var me *library.MappingError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "title", me.Violations[0].Field)
	assert.Zero(t, store.CourseCount())

	created, err := svc.CreateForAuthor(ctx, authorID, CourseForCreation{Title: "Go"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, authorID, created.ID, CourseForUpdate{Title: ""})
	require.ErrorAs(t, err, &me)
}

func TestCourseService_CourseOfAnotherAuthor(t *testing.T) {
	ctx := context.Background()
	svc, store, authorID := newCourseFixture(t)

	other, err := NewAuthorService(NewStructMapper(), store, store.Authors()).Create(ctx,
		AuthorForCreation{FirstName: "John", LastName: "Roe"})
	require.NoError(t, err)
	course, err := svc.CreateForAuthor(ctx, other.ID, CourseForCreation{Title: "Go"})
	require.NoError(t, err)

	_, err = svc.GetForAuthor(ctx, authorID, course.ID)
	assert.ErrorIs(t, err, library.ErrCourseNotFound)
}
