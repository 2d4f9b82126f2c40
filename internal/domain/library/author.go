package library

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/courselibrary/backend/internal/domain/shared"
)

// Field limits shared by the mapper and the storage schema
const (
	MaxNameLength        = 50
	MaxCategoryLength    = 50
	MaxTitleLength       = 100
	MaxDescriptionLength = 1500
)

// Author is the aggregate root of the library. Courses holds the courses
// staged together with the author; it is not loaded by reads.
type Author struct {
	shared.BaseEntity
	FirstName    string     `gorm:"type:varchar(50);not null"`
	LastName     string     `gorm:"type:varchar(50);not null"`
	DateOfBirth  *time.Time `gorm:"type:date"`
	MainCategory string     `gorm:"type:varchar(50)"`
	Courses      []*Course  `gorm:"-"`
}

// TableName returns the table name for GORM
func (Author) TableName() string {
	return "authors"
}

// NewAuthor creates an unpersisted author
func NewAuthor(firstName, lastName string, dateOfBirth *time.Time, mainCategory string) (*Author, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	mainCategory = strings.TrimSpace(mainCategory)

	if err := validateRequired("first name", firstName, MaxNameLength); err != nil {
		return nil, err
	}
	if err := validateRequired("last name", lastName, MaxNameLength); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(mainCategory) > MaxCategoryLength {
		return nil, shared.NewDomainError("INVALID_MAIN_CATEGORY", "Main category cannot exceed 50 characters")
	}
	if dateOfBirth != nil && dateOfBirth.After(time.Now()) {
		return nil, shared.NewDomainError("INVALID_DATE_OF_BIRTH", "Date of birth cannot be in the future")
	}

	return &Author{
		FirstName:    firstName,
		LastName:     lastName,
		DateOfBirth:  dateOfBirth,
		MainCategory: mainCategory,
	}, nil
}

// Name returns the author's display name
func (a *Author) Name() string {
	return a.FirstName + " " + a.LastName
}

// Age returns the author's age in whole years at now. ok is false when the
// date of birth is unknown.
func (a *Author) Age(now time.Time) (age int, ok bool) {
	if a.DateOfBirth == nil {
		return 0, false
	}
	dob := *a.DateOfBirth
	age = now.Year() - dob.Year()
	if now.Before(dob.AddDate(age, 0, 0)) {
		age--
	}
	return age, true
}

// AddCourse attaches a new course that will be persisted with the author
func (a *Author) AddCourse(title, description string) (*Course, error) {
	course, err := NewCourse(a.ID, title, description)
	if err != nil {
		return nil, err
	}
	a.Courses = append(a.Courses, course)
	return course, nil
}

func validateRequired(field, value string, max int) error {
	if value == "" {
		return shared.NewDomainError("INVALID_INPUT", capitalize(field)+" is required")
	}
	if utf8.RuneCountInString(value) > max {
		return shared.NewDomainError("INVALID_INPUT", capitalize(field)+" is too long")
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
