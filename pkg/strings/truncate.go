package strings

import (
	"strings"
)

// DefaultPreviewMaxLen is the width used for message previews in conversation listings.
const DefaultPreviewMaxLen = 60

// MinTruncateLen is the minimum maxLen value for TruncatePreview.
// Smaller values would not leave room for a character plus "...".
const MinTruncateLen = 4

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// CollapseWhitespace joins all whitespace runs (newlines, tabs, repeated
// spaces) into single spaces and trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncatePreview returns a single-line preview of s that is at most maxLen
// runes long, including the trailing "..." when truncated.
//
// maxLen is clamped to MinTruncateLen.
func TruncatePreview(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = CollapseWhitespace(s)

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
	}
	return s
}

// Title derives a conversation title from the first user message: the first
// n runes of the whitespace-collapsed text, with "..." appended only when
// something was cut off. Unlike TruncatePreview the ellipsis is not counted
// against n.
func Title(s string, n int) string {
	s = CollapseWhitespace(s)
	if n <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + Ellipsis
}
