package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuthorRepository implements library.AuthorRepository using GORM
type GormAuthorRepository struct {
	db *gorm.DB
}

// NewGormAuthorRepository creates a new GormAuthorRepository
func NewGormAuthorRepository(db *gorm.DB) *GormAuthorRepository {
	return &GormAuthorRepository{db: db}
}

// FindByID finds an author by ID
func (r *GormAuthorRepository) FindByID(ctx context.Context, id uuid.UUID) (*library.Author, error) {
	var author library.Author
	if err := r.db.WithContext(ctx).First(&author, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, library.ErrAuthorNotFound
		}
		return nil, &library.StorageError{Op: "find author", Err: err}
	}
	return &author, nil
}

// FindByIDs returns the authors among ids that exist
func (r *GormAuthorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*library.Author, error) {
	if len(ids) == 0 {
		return []*library.Author{}, nil
	}
	var authors []*library.Author
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return nil, &library.StorageError{Op: "find authors", Err: err}
	}
	return authors, nil
}

// FindAll lists authors matching filter
func (r *GormAuthorRepository) FindAll(ctx context.Context, filter library.AuthorFilter) ([]*library.Author, error) {
	filter.Filter = filter.Filter.Normalize()

	query := applyAuthorFilter(r.db.WithContext(ctx).Model(&library.Author{}), filter)
	for _, clause := range orderClauses(filter.OrderBy, filter.OrderDir, AuthorSortColumns, "name") {
		query = query.Order(clause)
	}

	var authors []*library.Author
	if err := query.Offset(filter.Offset()).Limit(filter.PageSize).Find(&authors).Error; err != nil {
		return nil, &library.StorageError{Op: "list authors", Err: err}
	}
	return authors, nil
}

// Count counts authors matching filter, ignoring paging
func (r *GormAuthorRepository) Count(ctx context.Context, filter library.AuthorFilter) (int64, error) {
	var total int64
	query := applyAuthorFilter(r.db.WithContext(ctx).Model(&library.Author{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return 0, &library.StorageError{Op: "count authors", Err: err}
	}
	return total, nil
}

// Exists reports whether an author with id exists
func (r *GormAuthorRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&library.Author{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, &library.StorageError{Op: "find author", Err: err}
	}
	return count > 0, nil
}

// Delete removes the author and their courses in one transaction
func (r *GormAuthorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ?", id).Delete(&library.Course{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&library.Author{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return library.ErrAuthorNotFound
		}
		return nil
	})
	if err == nil || errors.Is(err, library.ErrAuthorNotFound) {
		return err
	}
	return &library.StorageError{Op: "delete author", Err: err}
}

func applyAuthorFilter(query *gorm.DB, filter library.AuthorFilter) *gorm.DB {
	if category := strings.TrimSpace(filter.MainCategory); category != "" {
		query = query.Where("LOWER(main_category) = ?", strings.ToLower(category))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(main_category) LIKE ?", like, like, like)
	}
	return query
}

// Ensure GormAuthorRepository implements library.AuthorRepository
var _ library.AuthorRepository = (*GormAuthorRepository)(nil)
