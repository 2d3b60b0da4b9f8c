package formatting

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Spinner shows progress on a terminal. A disabled Spinner prints nothing.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner returns a spinner writing to w with the given suffix.
// When enabled is false every method is a no-op.
func NewSpinner(w io.Writer, suffix string, enabled bool) *Spinner {
	if !enabled {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	return &Spinner{s: s}
}

// Start begins animating.
func (s *Spinner) Start() {
	if s.s != nil {
		s.s.Start()
	}
}

// Update replaces the suffix while running.
func (s *Spinner) Update(suffix string) {
	if s.s != nil {
		s.s.Lock()
		s.s.Suffix = " " + suffix
		s.s.Unlock()
	}
}

// Stop clears the spinner without a final message.
func (s *Spinner) Stop() {
	if s.s != nil {
		s.s.Stop()
	}
}

// Succeed stops the spinner and leaves a green message.
func (s *Spinner) Succeed(msg string) {
	s.finish(text.FgGreen.Sprint("✓ " + msg))
}

// Fail stops the spinner and leaves a red message.
func (s *Spinner) Fail(msg string) {
	s.finish(text.FgRed.Sprint("✗ " + msg))
}

func (s *Spinner) finish(msg string) {
	if s.s == nil {
		return
	}
	s.s.FinalMSG = msg + "\n"
	s.s.Stop()
}
