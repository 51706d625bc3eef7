package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "pipes become commas",
			in:   "title changed | Neue Produkte: A, B",
			want: "title changed, Neue Produkte A, B",
		},
		{
			name: "arrows and colons stripped",
			in:   "price changed: 9.99 → 12.49",
			want: "price changed 999 1249",
		},
		{
			name: "comma spacing normalized",
			in:   "a ,b,   c ,, d",
			want: "a, b, c, d",
		},
		{
			name: "umlauts survive",
			in:   "Suchvorschläge geändert",
			want: "Suchvorschläge geändert",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSummary(tt.in))
		})
	}
}

func TestCleanSummary_Idempotent(t *testing.T) {
	inputs := []string{
		"title changed | price changed: 10 → 12",
		"Neue Produkte: A, B | Entfernte Produkte: C",
		"already, clean, summary",
		"  messy   whitespace  ",
		"!!!@#$%^&*()",
	}

	for _, in := range inputs {
		once := CleanSummary(in)
		assert.Equal(t, once, CleanSummary(once), "not idempotent for %q", in)
	}
}
