package formatting

import (
	"github.com/charmbracelet/glamour"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultWrapWidth is the word-wrap width for rendered markdown.
const DefaultWrapWidth = 100

// MarkdownRenderer renders markdown for the terminal. A nil renderer, or one
// whose terminal renderer could not be created, returns text unchanged.
type MarkdownRenderer struct {
	r *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer that wraps at width columns.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.Warn("Formatting", "Markdown rendering disabled: %v", err)
		return &MarkdownRenderer{}
	}
	return &MarkdownRenderer{r: r}
}

// Render returns s rendered as markdown, or s itself on failure.
func (m *MarkdownRenderer) Render(s string) string {
	if m == nil || m.r == nil {
		return s
	}
	out, err := m.r.Render(s)
	if err != nil {
		logging.Debug("Formatting", "Markdown rendering failed: %v", err)
		return s
	}
	return out
}
