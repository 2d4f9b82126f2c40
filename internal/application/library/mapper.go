package library

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/courselibrary/backend/internal/domain/library"
	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Mapper translates creation requests into entities and entities into
// responses. Translate is all-or-nothing: one bad element rejects the batch.
type Mapper interface {
	Translate(requests []AuthorForCreation) ([]*library.Author, error)
	TranslateAuthor(request AuthorForCreation) (*library.Author, error)
	TranslateCourse(authorID uuid.UUID, request CourseForCreation) (*library.Course, error)
	ToAuthorResponses(authors []*library.Author) []AuthorResponse
	ToAuthorResponse(author *library.Author) AuthorResponse
	ToCourseResponse(course *library.Course) CourseResponse
}

// StructMapper checks requests against their validate tags and copies
// the trimmed fields into new entities.
type StructMapper struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewStructMapper creates a StructMapper. Violations are reported with
// JSON field names.
func NewStructMapper() *StructMapper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &StructMapper{validate: v, now: time.Now}
}

// Translate maps every request or none. The returned MappingError lists
// all violations of the batch, each prefixed with its element index.
func (m *StructMapper) Translate(requests []AuthorForCreation) ([]*library.Author, error) {
	authors := make([]*library.Author, 0, len(requests))
	var violations []library.FieldViolation

	for i, req := range requests {
		author, vs := m.translateAuthor(req)
		if len(vs) > 0 {
			violations = append(violations, prefixed(fmt.Sprintf("[%d]", i), vs)...)
			continue
		}
		authors = append(authors, author)
	}

	if len(violations) > 0 {
		return nil, &library.MappingError{Violations: violations}
	}
	return authors, nil
}

// TranslateAuthor maps a single request
func (m *StructMapper) TranslateAuthor(request AuthorForCreation) (*library.Author, error) {
	author, vs := m.translateAuthor(request)
	if len(vs) > 0 {
		return nil, &library.MappingError{Violations: vs}
	}
	return author, nil
}

// TranslateCourse maps a course for an existing author
func (m *StructMapper) TranslateCourse(authorID uuid.UUID, request CourseForCreation) (*library.Course, error) {
	request.Title = strings.TrimSpace(request.Title)
	request.Description = strings.TrimSpace(request.Description)
	if vs := m.check(request); len(vs) > 0 {
		return nil, &library.MappingError{Violations: vs}
	}
	course, err := library.NewCourse(authorID, request.Title, request.Description)
	if err != nil {
		return nil, &library.MappingError{Violations: []library.FieldViolation{fromDomainError("", err)}}
	}
	return course, nil
}

func (m *StructMapper) translateAuthor(req AuthorForCreation) (*library.Author, []library.FieldViolation) {
	req = trimAuthor(req)
	if vs := m.check(req); len(vs) > 0 {
		return nil, vs
	}

	author, err := library.NewAuthor(req.FirstName, req.LastName, calendarDate(req.DateOfBirth), req.MainCategory)
	if err != nil {
		return nil, []library.FieldViolation{fromDomainError("", err)}
	}
	for j, c := range req.Courses {
		if _, err := author.AddCourse(c.Title, c.Description); err != nil {
			return nil, []library.FieldViolation{fromDomainError(fmt.Sprintf("courses[%d]", j), err)}
		}
	}
	return author, nil
}

// calendarDate keeps the date the client wrote, as UTC midnight, so the
// value matches what a DATE column returns on read
func calendarDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// check returns the violations of v with paths relative to v
func (m *StructMapper) check(v any) []library.FieldViolation {
	err := m.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []library.FieldViolation{{Field: "", Message: err.Error()}}
	}

	violations := make([]library.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, library.FieldViolation{
			Field:   relativeNamespace(fe.Namespace()),
			Message: violationMessage(fe),
		})
	}
	return violations
}

// ToAuthorResponses maps authors in order
func (m *StructMapper) ToAuthorResponses(authors []*library.Author) []AuthorResponse {
	out := make([]AuthorResponse, len(authors))
	for i, a := range authors {
		out[i] = m.ToAuthorResponse(a)
	}
	return out
}

// ToAuthorResponse maps one author, including the courses staged with it
func (m *StructMapper) ToAuthorResponse(a *library.Author) AuthorResponse {
	resp := AuthorResponse{
		ID:           a.ID,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Name:         a.Name(),
		DateOfBirth:  a.DateOfBirth,
		MainCategory: a.MainCategory,
		CreatedAt:    a.CreatedAt,
	}
	if age, ok := a.Age(m.now()); ok {
		resp.Age = &age
	}
	if len(a.Courses) > 0 {
		resp.Courses = make([]CourseResponse, len(a.Courses))
		for i, c := range a.Courses {
			resp.Courses[i] = m.ToCourseResponse(c)
		}
	}
	return resp
}

// ToCourseResponse maps one course
func (m *StructMapper) ToCourseResponse(c *library.Course) CourseResponse {
	return CourseResponse{
		ID:          c.ID,
		AuthorID:    c.AuthorID,
		Title:       c.Title,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func trimAuthor(req AuthorForCreation) AuthorForCreation {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.MainCategory = strings.TrimSpace(req.MainCategory)
	if len(req.Courses) > 0 {
		courses := make([]CourseForCreation, len(req.Courses))
		for i, c := range req.Courses {
			courses[i] = CourseForCreation{
				Title:       strings.TrimSpace(c.Title),
				Description: strings.TrimSpace(c.Description),
			}
		}
		req.Courses = courses
	}
	return req
}

// relativeNamespace drops the root struct name: "AuthorForCreation.courses[1].title"
// becomes "courses[1].title"
func relativeNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func prefixed(prefix string, vs []library.FieldViolation) []library.FieldViolation {
	out := make([]library.FieldViolation, len(vs))
	for i, v := range vs {
		field := prefix
		if v.Field != "" {
			field += "." + v.Field
		}
		out[i] = library.FieldViolation{Field: field, Message: v.Message}
	}
	return out
}

func fromDomainError(field string, err error) library.FieldViolation {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return library.FieldViolation{Field: field, Message: de.Message}
	}
	return library.FieldViolation{Field: field, Message: err.Error()}
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "lte":
		return "must not be in the future"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
