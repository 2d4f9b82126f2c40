package persistence

import (
	"strings"
)

// AuthorSortColumns whitelists the author sort keys accepted from clients
// and the columns each one orders by
var AuthorSortColumns = map[string][]string{
	"name":         {"first_name", "last_name"},
	"firstName":    {"first_name"},
	"lastName":     {"last_name"},
	"mainCategory": {"main_category"},
	"createdAt":    {"created_at"},
}

// ValidateSortOrder normalizes orderDir to "asc" or "desc".
// Anything other than desc sorts ascending.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "desc") {
		return "desc"
	}
	return "asc"
}

// ValidateSortColumns returns the columns for sortKey, or those of
// defaultKey when sortKey is not whitelisted. Keys are case sensitive.
func ValidateSortColumns(sortKey string, allowed map[string][]string, defaultKey string) []string {
	if cols, ok := allowed[strings.TrimSpace(sortKey)]; ok {
		return cols
	}
	return allowed[defaultKey]
}

// orderClauses renders the ORDER BY terms for a validated key and direction
func orderClauses(sortKey, orderDir string, allowed map[string][]string, defaultKey string) []string {
	dir := ValidateSortOrder(orderDir)
	cols := ValidateSortColumns(sortKey, allowed, defaultKey)
	clauses := make([]string, len(cols))
	for i, col := range cols {
		clauses[i] = col + " " + dir
	}
	return clauses
}
