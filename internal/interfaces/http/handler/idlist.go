package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxIDListLength bounds the ids accepted in one collection lookup
const MaxIDListLength = 100

var errEmptyIDList = errors.New("at least one author id is required")

// ParseIDList parses "(id1,id2)" or "id1,id2". Whitespace around ids is ignored.
func ParseIDList(raw string) ([]uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		raw = raw[1 : len(raw)-1]
	}
	if strings.TrimSpace(raw) == "" {
		return nil, errEmptyIDList
	}

	parts := strings.Split(raw, ",")
	if len(parts) > MaxIDListLength {
		return nil, fmt.Errorf("at most %d author ids are allowed", MaxIDListLength)
	}
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid author id %q", strings.TrimSpace(part))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatIDList renders ids as "(id1,id2)"
func FormatIDList(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}
