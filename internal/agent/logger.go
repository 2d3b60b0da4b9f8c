package agent

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// Logger writes user-facing REPL output. Diagnostics go to pkg/logging so
// they never interleave with a streamed reply.
type Logger struct {
	verbose  bool
	useColor bool
	writer   io.Writer
}

// Writer returns the destination of all output.
func (l *Logger) Writer() io.Writer {
	return l.writer
}

func NewDevNullLogger() *Logger {
	return &Logger{writer: io.Discard}
}

// NewLoggerWithWriter creates a new logger with a custom writer
func NewLoggerWithWriter(verbose, useColor bool, writer io.Writer) *Logger {
	return &Logger{
		verbose:  verbose,
		useColor: useColor,
		writer:   writer,
	}
}

// Output writes text as is.
func (l *Logger) Output(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, format, args...)
}

// OutputLine writes user-facing output with a newline
func (l *Logger) OutputLine(format string, args ...interface{}) {
	fmt.Fprintf(l.writer, format+"\n", args...)
}

// colorize applies color to text if colors are enabled
func (l *Logger) colorize(s string, colors text.Colors) string {
	if !l.useColor {
		return s
	}
	return colors.Sprint(s)
}

// Info prints a status message.
func (l *Logger) Info(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, l.colorize(fmt.Sprintf(format, args...), text.Colors{text.FgHiBlack}))
}

// Warn prints a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, l.colorize("⚠ "+fmt.Sprintf(format, args...), text.Colors{text.FgYellow}))
}

// Error prints an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, l.colorize(fmt.Sprintf(format, args...), text.Colors{text.FgRed}))
}

// Success prints a success message.
func (l *Logger) Success(format string, args ...interface{}) {
	fmt.Fprintln(l.writer, l.colorize("✓ "+fmt.Sprintf(format, args...), text.Colors{text.FgGreen}))
}

// Debug prints only in verbose mode. The message is always sent to the
// process log.
func (l *Logger) Debug(format string, args ...interface{}) {
	logging.Debug("Agent", format, args...)
	if !l.verbose {
		return
	}
	fmt.Fprintln(l.writer, l.colorize(fmt.Sprintf(format, args...), text.Colors{text.FgHiBlack, text.Italic}))
}

// Label renders a speaker label such as "Atom:".
func (l *Logger) Label(s string, colors text.Colors) string {
	return l.colorize(s, colors)
}
