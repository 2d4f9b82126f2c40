package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/courselibrary/backend/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newSQLiteDatabase creates a migrated SQLite database in a temp dir
func newSQLiteDatabase(t *testing.T) *Database {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:          config.DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "library.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}

	sqlDB, err := migration.OpenDB(cfg)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, cfg.Driver, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_CommitAndRead(t *testing.T) {
	db := newSQLiteDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	courses := NewGormCourseRepository(db.DB)
	ctx := context.Background()

	dob := time.Date(1650, 3, 6, 0, 0, 0, 0, time.UTC)
	uow := store.NewUnitOfWork()
	jane, err := library.NewAuthor("Jane", "Doe", &dob, "Maps")
	require.NoError(t, err)
	_, err = jane.AddCourse("Reading Stars", "Navigation basics")
	require.NoError(t, err)
	_, err = jane.AddCourse("Charting Coasts", "")
	require.NoError(t, err)
	uow.StageAuthor(jane)
	require.NoError(t, uow.Commit(ctx))

	got, err := authors.FindByID(ctx, jane.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name())
	require.NotNil(t, got.DateOfBirth)
	assert.True(t, dob.Equal(got.DateOfBirth.UTC()))

	list, err := courses.FindByAuthor(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Charting Coasts", list[0].Title)

	exists, err := authors.Exists(ctx, jane.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, db.Ping(ctx))
}

func TestSQLite_FailedBatchPersistsNothing(t *testing.T) {
	db := newSQLiteDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	valid, err := library.NewAuthor("Ann", "Doe", nil, "")
	require.NoError(t, err)
	uow.StageAuthor(valid)
	// violates the courses.author_id foreign key after the author insert ran
	uow.StageCourse(&library.Course{AuthorID: uuid.New(), Title: "Orphan"})

	err = uow.Commit(ctx)

	var se *library.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert courses", se.Op)
	assert.Equal(t, uuid.Nil, valid.ID)

	total, err := authors.Count(ctx, library.AuthorFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSQLite_ListFilterCount(t *testing.T) {
	db := newSQLiteDatabase(t)
	store := NewGormStore(db.DB)
	repo := NewGormAuthorRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	for _, a := range []struct{ first, last, category string }{
		{"Berry", "Griffin", "Ships"},
		{"Nancy", "Rye", "Rum"},
		{"Eli", "Sweet", "Singing"},
		{"Arnold", "Bligh", "rum"},
	} {
		author, err := library.NewAuthor(a.first, a.last, nil, a.category)
		require.NoError(t, err)
		uow.StageAuthor(author)
	}
	require.NoError(t, uow.Commit(ctx))

	all, err := repo.FindAll(ctx, library.AuthorFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Arnold", all[0].FirstName)

	rum := library.AuthorFilter{MainCategory: "RUM"}
	byCategory, err := repo.FindAll(ctx, rum)
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)
	n, err := repo.Count(ctx, rum)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	searched, err := repo.FindAll(ctx, library.AuthorFilter{Filter: shared.Filter{Search: "swe"}})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "Eli", searched[0].FirstName)

	page, err := repo.FindAll(ctx, library.AuthorFilter{Filter: shared.Filter{Page: 2, PageSize: 3, OrderBy: "lastName"}})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Sweet", page[0].LastName)

	ids := []uuid.UUID{all[0].ID, all[3].ID, uuid.New()}
	found, err := repo.FindByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestSQLite_CourseLifecycleAndCascade(t *testing.T) {
	db := newSQLiteDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	courses := NewGormCourseRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	author, err := library.NewAuthor("Jane", "Doe", nil, "")
	require.NoError(t, err)
	uow.StageAuthor(author)
	require.NoError(t, uow.Commit(ctx))

	course, err := library.NewCourse(author.ID, "Knots", "")
	require.NoError(t, err)
	uow = store.NewUnitOfWork()
	uow.StageCourse(course)
	require.NoError(t, uow.Commit(ctx))

	require.NoError(t, course.Update("Advanced Knots", "Bowlines and more"))
	require.NoError(t, courses.Update(ctx, course))

	got, err := courses.FindForAuthor(ctx, author.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Knots", got.Title)
	assert.Equal(t, "Bowlines and more", got.Description)

	_, err = courses.FindForAuthor(ctx, uuid.New(), course.ID)
	assert.ErrorIs(t, err, library.ErrCourseNotFound)

	stranger := *course
	stranger.AuthorID = uuid.New()
	assert.ErrorIs(t, courses.Update(ctx, &stranger), shared.ErrNotFound)

	require.NoError(t, authors.Delete(ctx, author.ID))
	remaining, err := courses.FindByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, authors.Delete(ctx, author.ID), shared.ErrNotFound)
	assert.ErrorIs(t, courses.Delete(ctx, author.ID, course.ID), shared.ErrNotFound)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported")
}
