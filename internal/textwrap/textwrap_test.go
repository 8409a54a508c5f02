package textwrap

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		expected string
	}{
		{
			name:     "empty",
			text:     "",
			width:    10,
			expected: "",
		},
		{
			name:     "fits",
			text:     "a cat",
			width:    10,
			expected: "a cat",
		},
		{
			name:     "cut at last space",
			text:     "the quick brown fox",
			width:    10,
			expected: "the quick\nbrown fox",
		},
		{
			name:     "space exactly at width",
			text:     "hello world",
			width:    5,
			expected: "hello\nworld",
		},
		{
			name:     "long token force cut",
			text:     "abcdefghij",
			width:    4,
			expected: "abcd\nefgh\nij",
		},
		{
			name:     "long token after a word",
			text:     "hi abcdefgh",
			width:    4,
			expected: "hi\nabcd\nefgh",
		},
		{
			name:     "paragraph breaks kept",
			text:     "first line\n\nsecond paragraph here",
			width:    10,
			expected: "first line\n\nsecond\nparagraph\nhere",
		},
		{
			name:     "zero width treated as one",
			text:     "ab",
			width:    0,
			expected: "a\nb",
		},
		{
			name:     "multibyte characters count once",
			text:     "héllo wörld",
			width:    5,
			expected: "héllo\nwörld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Wrap(tt.text, tt.width))
		})
	}
}

func TestWrapLineWidthBound(t *testing.T) {
	texts := []string{
		"You are looking at a tabby cat sitting on a windowsill in the afternoon sun.",
		"supercalifragilisticexpialidocious is a long word",
		"User: what is this?\nAssistant: It looks like a very old typewriter with round keys.",
		"  leading spaces and   runs   of spaces  ",
	}

	for _, text := range texts {
		for width := 1; width <= 30; width++ {
			out := Wrap(text, width)
			for _, line := range strings.Split(out, "\n") {
				assert.LessOrEqual(t, utf8.RuneCountInString(line), width, "text %q width %d line %q", text, width, line)
			}
		}
	}
}

func TestWrapReconstructsContent(t *testing.T) {
	text := "the display on the glasses only fits a few words per line"
	out := Wrap(text, 12)

	// Only spaces at cut points were replaced by line breaks.
	assert.Equal(t, text, strings.ReplaceAll(out, "\n", " "))
}

func TestWrapForceCutReconstructs(t *testing.T) {
	text := "0123456789abcdef"
	out := Wrap(text, 5)

	assert.Equal(t, text, strings.ReplaceAll(out, "\n", ""))
}
