package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var authorColumns = []string{"id", "created_at", "updated_at", "first_name", "last_name", "date_of_birth", "main_category"}

func TestGormAuthorRepository_FindByID(t *testing.T) {
	t.Run("finds existing author", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAuthorRepository(db)

		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(authorColumns).
			AddRow(id, now, now, "Nancy", "Rye", nil, "Rum")

		mock.ExpectQuery(`SELECT \* FROM "authors" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		author, err := repo.FindByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, author.ID)
		assert.Equal(t, "Nancy Rye", author.Name())
		assert.Nil(t, author.DateOfBirth)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAuthorRepository(db)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "authors" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		author, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, author)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver failures as storage errors", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormAuthorRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "authors"`).WillReturnError(errors.New("too many connections"))

		_, err := repo.FindByID(context.Background(), uuid.New())

		var se *library.StorageError
		assert.ErrorAs(t, err, &se)
	})
}

func TestGormAuthorRepository_FindByIDs(t *testing.T) {
	t.Run("no ids issues no query", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		authors, err := NewGormAuthorRepository(db).FindByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("selects by id list", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		a, b := uuid.New(), uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "authors" WHERE id IN \(\$1,\$2\)`).
			WithArgs(a, b).
			WillReturnRows(sqlmock.NewRows(authorColumns).
				AddRow(a, now, now, "Ann", "Doe", nil, "").
				AddRow(b, now, now, "Bob", "Doe", nil, ""))

		authors, err := NewGormAuthorRepository(db).FindByIDs(context.Background(), []uuid.UUID{a, b})
		require.NoError(t, err)
		assert.Len(t, authors, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormAuthorRepository_FindAll(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "authors" WHERE LOWER\(main_category\) = \$1 AND \(LOWER\(first_name\) LIKE \$2 OR .*\) ORDER BY last_name desc LIMIT \$5 OFFSET \$6`).
		WithArgs("rum", "%nan%", "%nan%", "%nan%", 5, 5).
		WillReturnRows(sqlmock.NewRows(authorColumns))

	filter := library.AuthorFilter{
		Filter:       shared.Filter{Page: 2, PageSize: 5, OrderBy: "lastName", OrderDir: "desc", Search: "Nan"},
		MainCategory: " Rum ",
	}
	authors, err := NewGormAuthorRepository(db).FindAll(context.Background(), filter)

	require.NoError(t, err)
	assert.Empty(t, authors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAuthorRepository_Delete(t *testing.T) {
	t.Run("deletes courses and author", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "courses" WHERE author_id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`DELETE FROM "authors" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewGormAuthorRepository(db).Delete(context.Background(), id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown author rolls back", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "courses"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`DELETE FROM "authors"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewGormAuthorRepository(db).Delete(context.Background(), id)
		assert.ErrorIs(t, err, library.ErrAuthorNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
