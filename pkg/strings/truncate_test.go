package strings

import (
	"strings"
	"testing"
)

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "hello",
			maxLen:   10,
			expected: "hello",
		},
		{
			name:     "exact length unchanged",
			input:    "hello",
			maxLen:   5,
			expected: "hello",
		},
		{
			name:     "long string truncated",
			input:    "hello world this is a long string",
			maxLen:   15,
			expected: "hello world ...",
		},
		{
			name:     "newlines collapsed",
			input:    "hello\r\n\n world",
			maxLen:   20,
			expected: "hello world",
		},
		{
			name:     "unicode is cut on rune boundaries",
			input:    "héllo wörld ünïcode",
			maxLen:   8,
			expected: "héllo...",
		},
		{
			name:     "tiny maxLen is clamped",
			input:    "abcdefgh",
			maxLen:   1,
			expected: "a...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TruncatePreview(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("TruncatePreview(%q, %d) = %q, expected %q", tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	long := strings.Repeat("a", 60)

	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"short input kept", "hi there", 50, "hi there"},
		{"exactly n runes kept", strings.Repeat("b", 50), 50, strings.Repeat("b", 50)},
		{"long input cut and suffixed", long, 50, strings.Repeat("a", 50) + "..."},
		{"whitespace collapsed first", "what   is\nGo?", 50, "what is Go?"},
		{"non-positive n disables the cut", long, 0, long},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.input, tt.n); got != tt.expected {
				t.Errorf("Title(%q, %d) = %q, expected %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}
