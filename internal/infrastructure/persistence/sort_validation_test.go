package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns asc", "", "asc"},
		{"desc lowercase returns desc", "desc", "desc"},
		{"DESC uppercase returns desc", "DESC", "desc"},
		{"whitespace around desc returns desc", "  desc  ", "desc"},
		{"asc returns asc", "asc", "asc"},
		{"invalid value returns asc", "INVALID", "asc"},
		{"sql injection attempt returns asc", "desc; DROP TABLE authors;--", "asc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortColumns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty key returns default", "", []string{"first_name", "last_name"}},
		{"known key", "lastName", []string{"last_name"}},
		{"whitespace around known key", "  createdAt ", []string{"created_at"}},
		{"keys are case sensitive", "LASTNAME", []string{"first_name", "last_name"}},
		{"column names are not keys", "last_name", []string{"first_name", "last_name"}},
		{"sql injection attempt returns default", "name; DROP TABLE authors;--", []string{"first_name", "last_name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortColumns(tt.input, AuthorSortColumns, "name"))
		})
	}
}

func TestOrderClauses(t *testing.T) {
	assert.Equal(t, []string{"first_name desc", "last_name desc"},
		orderClauses("name", "DESC", AuthorSortColumns, "name"))
	assert.Equal(t, []string{"main_category asc"},
		orderClauses("mainCategory", "", AuthorSortColumns, "name"))
}
