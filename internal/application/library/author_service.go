package library

import (
	"context"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/courselibrary/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// AuthorService handles single-author operations
type AuthorService struct {
	mapper  Mapper
	store   library.Store
	authors library.AuthorRepository
}

// NewAuthorService creates a new AuthorService
func NewAuthorService(mapper Mapper, store library.Store, authors library.AuthorRepository) *AuthorService {
	return &AuthorService{
		mapper:  mapper,
		store:   store,
		authors: authors,
	}
}

// List returns one page of authors matching filter and the total number of matches
func (s *AuthorService) List(ctx context.Context, filter AuthorListFilter) (shared.Paginated[AuthorResponse], error) {
	domainFilter := library.AuthorFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		MainCategory: filter.MainCategory,
	}

	authors, err := s.authors.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[AuthorResponse]{}, err
	}
	total, err := s.authors.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[AuthorResponse]{}, err
	}

	return shared.NewPaginated(s.mapper.ToAuthorResponses(authors), total, domainFilter.Page, domainFilter.PageSize), nil
}

// Get returns an author by ID
func (s *AuthorService) Get(ctx context.Context, id uuid.UUID) (*AuthorResponse, error) {
	author, err := s.authors.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.mapper.ToAuthorResponse(author)
	return &resp, nil
}

// Create creates one author together with its nested courses
func (s *AuthorService) Create(ctx context.Context, req AuthorForCreation) (*AuthorResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "author", "create")
	defer span.End()

	author, err := s.mapper.TranslateAuthor(req)
	if err != nil {
		return nil, err
	}

	uow := s.store.NewUnitOfWork()
	defer uow.Discard()

	uow.StageAuthor(author)
	if err := uow.Commit(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAuthorID, author.ID.String())
	resp := s.mapper.ToAuthorResponse(author)
	return &resp, nil
}

// Delete deletes an author and the author's courses
func (s *AuthorService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.authors.Delete(ctx, id)
}
