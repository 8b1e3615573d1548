package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize(t *testing.T) {
	assert.Equal(t, "keys", Pluralize(0, "key", "keys"))
	assert.Equal(t, "key", Pluralize(1, "key", "keys"))
	assert.Equal(t, "keys", Pluralize(2, "key", "keys"))
	assert.Equal(t, "keys", Pluralize(-1, "key", "keys"))
}

func TestCountNoun(t *testing.T) {
	assert.Equal(t, "0 issues", CountNoun(0, "issue", "issues"))
	assert.Equal(t, "1 issue", CountNoun(1, "issue", "issues"))
	assert.Equal(t, "12 issues", CountNoun(12, "issue", "issues"))
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"single", "boom", "boom"},
		{"multi", "first\nsecond", "first"},
		{"padded", "  solo  ", "solo"},
		{"leading blank lines", "\n\nfirst \nsecond", "first"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FirstLine(tt.input))
		})
	}
}
