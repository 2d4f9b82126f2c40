package persistence

import (
	"context"
	"errors"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCourseRepository implements library.CourseRepository using GORM
type GormCourseRepository struct {
	db *gorm.DB
}

// NewGormCourseRepository creates a new GormCourseRepository
func NewGormCourseRepository(db *gorm.DB) *GormCourseRepository {
	return &GormCourseRepository{db: db}
}

// FindByAuthor lists the courses of an author ordered by title
func (r *GormCourseRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*library.Course, error) {
	var courses []*library.Course
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("title").
		Find(&courses).Error
	if err != nil {
		return nil, &library.StorageError{Op: "list courses", Err: err}
	}
	return courses, nil
}

// FindForAuthor finds one course of an author
func (r *GormCourseRepository) FindForAuthor(ctx context.Context, authorID, courseID uuid.UUID) (*library.Course, error) {
	var course library.Course
	err := r.db.WithContext(ctx).
		Where("author_id = ? AND id = ?", authorID, courseID).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, library.ErrCourseNotFound
		}
		return nil, &library.StorageError{Op: "find course", Err: err}
	}
	return &course, nil
}

// Update writes the course's mutable fields
func (r *GormCourseRepository) Update(ctx context.Context, course *library.Course) error {
	result := r.db.WithContext(ctx).
		Model(&library.Course{}).
		Where("author_id = ? AND id = ?", course.AuthorID, course.ID).
		Updates(map[string]any{
			"title":       course.Title,
			"description": course.Description,
			"updated_at":  course.UpdatedAt,
		})
	if result.Error != nil {
		return &library.StorageError{Op: "update course", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return library.ErrCourseNotFound
	}
	return nil
}

// Delete removes one course of an author
func (r *GormCourseRepository) Delete(ctx context.Context, authorID, courseID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("author_id = ? AND id = ?", authorID, courseID).
		Delete(&library.Course{})
	if result.Error != nil {
		return &library.StorageError{Op: "delete course", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return library.ErrCourseNotFound
	}
	return nil
}

// Ensure GormCourseRepository implements library.CourseRepository
var _ library.CourseRepository = (*GormCourseRepository)(nil)
