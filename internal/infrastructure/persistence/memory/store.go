// Package memory provides an in-memory library.Store for tests and local
// experiments. Commits are atomic: a batch is applied to a copy of the
// tables which replaces the originals only when every insert succeeds.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
)

// Store is a map-backed library.Store
type Store struct {
	mu       sync.RWMutex
	authors  map[uuid.UUID]library.Author
	courses  map[uuid.UUID]library.Course
	failNext error
	commits  int
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		authors: make(map[uuid.UUID]library.Author),
		courses: make(map[uuid.UUID]library.Course),
	}
}

// NewUnitOfWork implements library.Store
func (s *Store) NewUnitOfWork() library.UnitOfWork {
	return &unitOfWork{store: s}
}

// FailNextCommit makes the next non-empty commit fail with err
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Commits returns the number of successful non-empty commits
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// AuthorCount returns the number of stored authors
func (s *Store) AuthorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.authors)
}

// CourseCount returns the number of stored courses
func (s *Store) CourseCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses)
}

// Authors returns a library.AuthorRepository view of the store
func (s *Store) Authors() *AuthorRepository {
	return &AuthorRepository{store: s}
}

// Courses returns a library.CourseRepository view of the store
func (s *Store) Courses() *CourseRepository {
	return &CourseRepository{store: s}
}

func (s *Store) apply(authors []*library.Author, courses []*library.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}

	nextAuthors := make(map[uuid.UUID]library.Author, len(s.authors)+len(authors))
	for id, a := range s.authors {
		nextAuthors[id] = a
	}
	for _, a := range authors {
		if _, dup := nextAuthors[a.ID]; dup {
			return fmt.Errorf("duplicate author id %s", a.ID)
		}
		row := *a
		row.Courses = nil
		nextAuthors[a.ID] = row
	}

	nextCourses := make(map[uuid.UUID]library.Course, len(s.courses)+len(courses))
	for id, c := range s.courses {
		nextCourses[id] = c
	}
	for _, c := range courses {
		if _, ok := nextAuthors[c.AuthorID]; !ok {
			return fmt.Errorf("course %q references unknown author %s", c.Title, c.AuthorID)
		}
		nextCourses[c.ID] = *c
	}

	s.authors = nextAuthors
	s.courses = nextCourses
	s.commits++
	return nil
}

type unitOfWork struct {
	library.Batch
	store *Store
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	return u.Batch.Commit(ctx, func(_ context.Context, authors []*library.Author, courses []*library.Course) error {
		return u.store.apply(authors, courses)
	})
}

// AuthorRepository implements library.AuthorRepository over a Store
type AuthorRepository struct {
	store *Store
}

// FindByID implements library.AuthorRepository
func (r *AuthorRepository) FindByID(_ context.Context, id uuid.UUID) (*library.Author, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.authors[id]
	if !ok {
		return nil, library.ErrAuthorNotFound
	}
	return &a, nil
}

// FindByIDs implements library.AuthorRepository
func (r *AuthorRepository) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*library.Author, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*library.Author, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.store.authors[id]; ok {
			out = append(out, &a)
		}
	}
	return out, nil
}

// authorColumns compares authors on the columns named by
// persistence.AuthorSortColumns
var authorColumns = map[string]func(a, b *library.Author) int{
	"first_name":    func(a, b *library.Author) int { return cmp.Compare(a.FirstName, b.FirstName) },
	"last_name":     func(a, b *library.Author) int { return cmp.Compare(a.LastName, b.LastName) },
	"main_category": func(a, b *library.Author) int { return cmp.Compare(a.MainCategory, b.MainCategory) },
	"created_at":    func(a, b *library.Author) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// FindAll implements library.AuthorRepository. Sort keys and the name
// default match the GORM repository.
func (r *AuthorRepository) FindAll(_ context.Context, filter library.AuthorFilter) ([]*library.Author, error) {
	filter.Filter = filter.Filter.Normalize()
	matches := r.matching(filter)

	cols := persistence.ValidateSortColumns(filter.OrderBy, persistence.AuthorSortColumns, "name")
	desc := persistence.ValidateSortOrder(filter.OrderDir) == "desc"
	slices.SortStableFunc(matches, func(a, b *library.Author) int {
		for _, col := range cols {
			if c := authorColumns[col](a, b); c != 0 {
				if desc {
					return -c
				}
				return c
			}
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	start := min(filter.Offset(), len(matches))
	end := min(start+filter.PageSize, len(matches))
	return matches[start:end], nil
}

// Count implements library.AuthorRepository
func (r *AuthorRepository) Count(_ context.Context, filter library.AuthorFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

// Exists implements library.AuthorRepository
func (r *AuthorRepository) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.authors[id]
	return ok, nil
}

// Delete implements library.AuthorRepository
func (r *AuthorRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.authors[id]; !ok {
		return library.ErrAuthorNotFound
	}
	for cid, c := range r.store.courses {
		if c.AuthorID == id {
			delete(r.store.courses, cid)
		}
	}
	delete(r.store.authors, id)
	return nil
}

func (r *AuthorRepository) matching(filter library.AuthorFilter) []*library.Author {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	category := strings.ToLower(strings.TrimSpace(filter.MainCategory))
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]*library.Author, 0, len(r.store.authors))
	for _, a := range r.store.authors {
		if category != "" && strings.ToLower(a.MainCategory) != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(a.FirstName), search) &&
			!strings.Contains(strings.ToLower(a.LastName), search) &&
			!strings.Contains(strings.ToLower(a.MainCategory), search) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return out
}

// CourseRepository implements library.CourseRepository over a Store
type CourseRepository struct {
	store *Store
}

// FindByAuthor implements library.CourseRepository
func (r *CourseRepository) FindByAuthor(_ context.Context, authorID uuid.UUID) ([]*library.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*library.Course, 0)
	for _, c := range r.store.courses {
		if c.AuthorID == authorID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// FindForAuthor implements library.CourseRepository
func (r *CourseRepository) FindForAuthor(_ context.Context, authorID, courseID uuid.UUID) (*library.Course, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.courses[courseID]
	if !ok || c.AuthorID != authorID {
		return nil, library.ErrCourseNotFound
	}
	return &c, nil
}

// Update implements library.CourseRepository
func (r *CourseRepository) Update(_ context.Context, course *library.Course) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.courses[course.ID]
	if !ok || c.AuthorID != course.AuthorID {
		return library.ErrCourseNotFound
	}
	r.store.courses[course.ID] = *course
	return nil
}

// Delete implements library.CourseRepository
func (r *CourseRepository) Delete(_ context.Context, authorID, courseID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.courses[courseID]
	if !ok || c.AuthorID != authorID {
		return library.ErrCourseNotFound
	}
	delete(r.store.courses, courseID)
	return nil
}

var (
	_ library.Store            = (*Store)(nil)
	_ library.AuthorRepository = (*AuthorRepository)(nil)
	_ library.CourseRepository = (*CourseRepository)(nil)
)
