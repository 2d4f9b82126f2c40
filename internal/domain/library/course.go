package library

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/courselibrary/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Course is a course written by an author
type Course struct {
	shared.BaseEntity
	AuthorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"type:varchar(100);not null"`
	Description string    `gorm:"type:varchar(1500)"`
}

// TableName returns the table name for GORM
func (Course) TableName() string {
	return "courses"
}

// NewCourse creates an unpersisted course. authorID may be nil when the
// course is staged together with a new author.
func NewCourse(authorID uuid.UUID, title, description string) (*Course, error) {
	c := &Course{AuthorID: authorID}
	if err := c.apply(title, description); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the course's title and description
func (c *Course) Update(title, description string) error {
	if err := c.apply(title, description); err != nil {
		return err
	}
	c.Touch(time.Now().UTC())
	return nil
}

func (c *Course) apply(title, description string) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if err := validateRequired("title", title, MaxTitleLength); err != nil {
		return err
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return shared.NewDomainError("INVALID_INPUT", "Description is too long")
	}
	c.Title = title
	c.Description = description
	return nil
}
