package slug_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/renderkit/pkg/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		opts     []slug.Option
		expected string
	}{
		{
			name:     "simple text",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with punctuation",
			input:    "Hello, World!",
			expected: "hello-world",
		},
		{
			name:     "with numbers",
			input:    "Scene 12",
			expected: "scene-12",
		},
		{
			name:     "multiple spaces",
			input:    "Too    Many     Spaces",
			expected: "too-many-spaces",
		},
		{
			name:     "leading and trailing noise",
			input:    "  --Trim Me--  ",
			expected: "trim-me",
		},
		{
			name:     "unicode diacritics",
			input:    "Café Scène",
			expected: "cafe-scene",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "only special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "custom separator",
			input:    "Final Cut",
			opts:     []slug.Option{slug.Separator("_")},
			expected: "final_cut",
		},
		{
			name:     "preserve case",
			input:    "Final Cut",
			opts:     []slug.Option{slug.Lowercase(false)},
			expected: "Final-Cut",
		},
		{
			name:     "max length trims at rune boundary",
			input:    "a very long storyboard title",
			opts:     []slug.Option{slug.MaxLength(11)},
			expected: "a-very-long",
		},
		{
			name:     "max length trims trailing separator",
			input:    "a very long storyboard title",
			opts:     []slug.Option{slug.MaxLength(12)},
			expected: "a-very-long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, slug.Make(tt.input, tt.opts...))
		})
	}
}

func TestMakeWithSuffix(t *testing.T) {
	t.Parallel()

	t.Run("appends suffix of requested length", func(t *testing.T) {
		t.Parallel()

		s := slug.Make("scene one", slug.WithSuffix(6))
		assert.True(t, strings.HasPrefix(s, "scene-one-"))
		assert.Len(t, s, len("scene-one-")+6)
	})

	t.Run("suffix only for empty input", func(t *testing.T) {
		t.Parallel()

		s := slug.Make("", slug.WithSuffix(8))
		assert.Len(t, s, 8)
	})

	t.Run("suffixes differ between calls", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]bool)
		for range 20 {
			seen[slug.Make("x", slug.WithSuffix(8))] = true
		}
		assert.Greater(t, len(seen), 1)
	})
}
