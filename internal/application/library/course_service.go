package library

import (
	"context"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// CourseService handles the courses of an author. Every operation fails
// with library.ErrAuthorNotFound when the author does not exist.
type CourseService struct {
	mapper  Mapper
	store   library.Store
	authors library.AuthorRepository
	courses library.CourseRepository
}

// NewCourseService creates a new CourseService
func NewCourseService(
	mapper Mapper,
	store library.Store,
	authors library.AuthorRepository,
	courses library.CourseRepository,
) *CourseService {
	return &CourseService{
		mapper:  mapper,
		store:   store,
		authors: authors,
		courses: courses,
	}
}

// ListForAuthor returns the author's courses
func (s *CourseService) ListForAuthor(ctx context.Context, authorID uuid.UUID) ([]CourseResponse, error) {
	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	courses, err := s.courses.FindByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	out := make([]CourseResponse, len(courses))
	for i, c := range courses {
		out[i] = s.mapper.ToCourseResponse(c)
	}
	return out, nil
}

// GetForAuthor returns one course of the author
func (s *CourseService) GetForAuthor(ctx context.Context, authorID, courseID uuid.UUID) (*CourseResponse, error) {
	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	course, err := s.courses.FindForAuthor(ctx, authorID, courseID)
	if err != nil {
		return nil, err
	}
	resp := s.mapper.ToCourseResponse(course)
	return &resp, nil
}

// CreateForAuthor adds a course to an existing author
func (s *CourseService) CreateForAuthor(ctx context.Context, authorID uuid.UUID, req CourseForCreation) (*CourseResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "course", "create",
		telemetry.SpanAttrAuthorID, authorID.String(),
	)
	defer span.End()

	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	course, err := s.mapper.TranslateCourse(authorID, req)
	if err != nil {
		return nil, err
	}

	uow := s.store.NewUnitOfWork()
	defer uow.Discard()

	uow.StageCourse(course)
	if err := uow.Commit(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := s.mapper.ToCourseResponse(course)
	return &resp, nil
}

// Update replaces the title and description of a course
func (s *CourseService) Update(ctx context.Context, authorID, courseID uuid.UUID, req CourseForUpdate) (*CourseResponse, error) {
	if err := s.requireAuthor(ctx, authorID); err != nil {
		return nil, err
	}
	course, err := s.courses.FindForAuthor(ctx, authorID, courseID)
	if err != nil {
		return nil, err
	}

	replacement, err := s.mapper.TranslateCourse(authorID, CourseForCreation(req))
	if err != nil {
		return nil, err
	}
	if err := course.Update(replacement.Title, replacement.Description); err != nil {
		return nil, err
	}
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, err
	}

	resp := s.mapper.ToCourseResponse(course)
	return &resp, nil
}

// Delete removes a course of the author
func (s *CourseService) Delete(ctx context.Context, authorID, courseID uuid.UUID) error {
	if err := s.requireAuthor(ctx, authorID); err != nil {
		return err
	}
	return s.courses.Delete(ctx, authorID, courseID)
}

func (s *CourseService) requireAuthor(ctx context.Context, authorID uuid.UUID) error {
	exists, err := s.authors.Exists(ctx, authorID)
	if err != nil {
		return err
	}
	if !exists {
		return library.ErrAuthorNotFound
	}
	return nil
}
