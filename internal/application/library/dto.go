package library

import (
	"time"

	"github.com/google/uuid"
)

// AuthorForCreation is the client's description of a new author.
// Courses are created together with the author.
type AuthorForCreation struct {
	FirstName    string              `json:"firstName" validate:"required,max=50"`
	LastName     string              `json:"lastName" validate:"required,max=50"`
	DateOfBirth  *time.Time          `json:"dateOfBirth" validate:"omitempty,lte"`
	MainCategory string              `json:"mainCategory" validate:"max=50"`
	Courses      []CourseForCreation `json:"courses" validate:"omitempty,dive"`
}

// CourseForCreation is the client's description of a new course
type CourseForCreation struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1500"`
}

// CourseForUpdate replaces every field of a course
type CourseForUpdate struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1500"`
}

// AuthorListFilter is the query of an author listing
type AuthorListFilter struct {
	MainCategory string `form:"mainCategory"`
	Search       string `form:"searchQuery"`
	Page         int    `form:"pageNumber" binding:"omitempty,min=1"`
	PageSize     int    `form:"pageSize" binding:"omitempty,min=1,max=50"`
	OrderBy      string `form:"orderBy" binding:"omitempty,oneof=name firstName lastName mainCategory createdAt"`
	OrderDir     string `form:"orderDir" binding:"omitempty,oneof=asc desc"`
}

// AuthorResponse is an author as returned to clients
type AuthorResponse struct {
	ID           uuid.UUID        `json:"id"`
	FirstName    string           `json:"firstName"`
	LastName     string           `json:"lastName"`
	Name         string           `json:"name"`
	DateOfBirth  *time.Time       `json:"dateOfBirth,omitempty"`
	Age          *int             `json:"age,omitempty"`
	MainCategory string           `json:"mainCategory"`
	Courses      []CourseResponse `json:"courses,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// CourseResponse is a course as returned to clients
type CourseResponse struct {
	ID          uuid.UUID `json:"id"`
	AuthorID    uuid.UUID `json:"authorId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CollectionResult is the outcome of a bulk create
type CollectionResult struct {
	Authors []AuthorResponse
	// Replayed is set when the response was served from an earlier
	// request with the same idempotency key
	Replayed bool
}
