//go:build integration

package persistence

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/infrastructure/config"
	"github.com/courselibrary/backend/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// newPostgresDatabase starts a PostgreSQL container, applies the embedded
// migrations and returns a connected Database
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("library_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("library"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	cfg := postgresConfig(t, dsn)

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

func postgresConfig(t *testing.T, dsn string) *config.DatabaseConfig {
	t.Helper()
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	password, _ := u.User.Password()
	return &config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            u.Hostname(),
		Port:            port,
		User:            u.User.Username(),
		Password:        password,
		DBName:          u.Path[1:],
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 5,
	}
}

func TestPostgres_BatchCommit(t *testing.T) {
	db := newPostgresDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	courses := NewGormCourseRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	var staged []*library.Author
	for _, first := range []string{"Ann", "Bob", "Cid"} {
		a, err := library.NewAuthor(first, "Doe", nil, "Rum")
		require.NoError(t, err)
		_, err = a.AddCourse("Knots for "+first, "")
		require.NoError(t, err)
		uow.StageAuthor(a)
		staged = append(staged, a)
	}
	require.NoError(t, uow.Commit(ctx))

	ids := make([]uuid.UUID, len(staged))
	for i, a := range staged {
		require.NotEqual(t, uuid.Nil, a.ID)
		ids[i] = a.ID
	}
	found, err := authors.FindByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	list, err := courses.FindByAuthor(ctx, staged[1].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Knots for Bob", list[0].Title)

	require.NoError(t, db.Ping(ctx))
}

func TestPostgres_FailedBatchPersistsNothing(t *testing.T) {
	db := newPostgresDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	valid, err := library.NewAuthor("Ann", "Doe", nil, "")
	require.NoError(t, err)
	uow.StageAuthor(valid)
	uow.StageCourse(&library.Course{AuthorID: uuid.New(), Title: "Orphan"})

	err = uow.Commit(ctx)

	var se *library.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uuid.Nil, valid.ID)

	total, err := authors.Count(ctx, library.AuthorFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPostgres_DeleteCascadesCourses(t *testing.T) {
	db := newPostgresDatabase(t)
	store := NewGormStore(db.DB)
	authors := NewGormAuthorRepository(db.DB)
	courses := NewGormCourseRepository(db.DB)
	ctx := context.Background()

	uow := store.NewUnitOfWork()
	a, err := library.NewAuthor("Ann", "Doe", nil, "")
	require.NoError(t, err)
	_, err = a.AddCourse("Sailing", "")
	require.NoError(t, err)
	uow.StageAuthor(a)
	require.NoError(t, uow.Commit(ctx))

	require.NoError(t, authors.Delete(ctx, a.ID))

	list, err := courses.FindByAuthor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
