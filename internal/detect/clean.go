package detect

import (
	"regexp"
	"strings"
)

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s,|]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// CleanSummary normalizes a stored change summary to its canonical
// persisted form: word characters, single spaces and commas only, with
// pipe separators converted to commas. The function is pure and
// idempotent, so the offline backfill can be re-run safely.
func CleanSummary(raw string) string {
	s := disallowedChars.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "|", ",")
	s = whitespaceRuns.ReplaceAllString(s, " ")

	parts := strings.Split(s, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return strings.Join(cleaned, ", ")
}
