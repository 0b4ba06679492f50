package ebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{title: "Marketing Prompts!", want: "marketing-prompts"},
		{title: "  Spaced   Out  ", want: "spaced-out"},
		{title: "Keep-Hyphens 2024", want: "keep-hyphens-2024"},
		{title: "Ünicode Títle", want: "nicode-ttle"},
		{title: "!!!", want: "ebook"},
		{title: "", want: "ebook"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.title))
		})
	}
}
