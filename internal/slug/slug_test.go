package slug_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/internal/slug"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple title", in: "Hello World", want: "hello-world"},
		{name: "accents stripped", in: "Café Lïfe", want: "cafe-life"},
		{name: "punctuation collapsed", in: "Go 1.22: What's New?", want: "go-1-22-what-s-new"},
		{name: "existing hyphens kept", in: "already-slugged", want: "already-slugged"},
		{name: "surrounding noise trimmed", in: "  --Spaced Out--  ", want: "spaced-out"},
		{name: "underscores become hyphens", in: "UPPER_case_123", want: "upper-case-123"},
		{name: "non-latin drops to empty", in: "日本語", want: ""},
		{name: "empty input", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, slug.From(tt.in))
		})
	}
}
