package controllers

import (
	"strings"

	"github.com/google/uuid"
)

// parseIDList validates a slice of user/classroom ids, dropping blanks.
func parseIDList(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
