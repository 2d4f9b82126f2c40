package library

import (
	"fmt"
	"strings"

	"github.com/courselibrary/backend/internal/domain/shared"
)

var (
	ErrAuthorNotFound = shared.NewDomainError("NOT_FOUND", "Author not found")
	ErrCourseNotFound = shared.NewDomainError("NOT_FOUND", "Course not found")
)

// FieldViolation describes one field that could not be mapped.
// Field is a path such as "[2].lastName" or "[0].courses[1].title".
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MappingError reports that a batch of creation requests could not be
// translated to entities. No element of the batch is mapped.
type MappingError struct {
	Violations []FieldViolation
}

func (e *MappingError) Error() string {
	if len(e.Violations) == 0 {
		return "mapping failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return "mapping failed: " + strings.Join(parts, "; ")
}

// StorageError reports a failed write. Nothing staged for the failed
// operation was persisted and the whole batch may be retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
