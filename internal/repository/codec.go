package repository

import "strings"

// Membership and suggestion sets are real slices at the domain layer;
// the delimiter encoding below exists only at the storage boundary.

const listSeparator = ","

func encodeList(items []string) string {
	return strings.Join(items, listSeparator)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
