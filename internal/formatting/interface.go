// Package formatting renders command output and chat panels for the terminal.
//
// Listings support four output formats: a rounded table (default), a plain
// column layout for piping into other tools, JSON and YAML. Chat panels are
// drawn with lipgloss, stored assistant replies are rendered as markdown
// with glamour, and long-running calls show a spinner.
package formatting

import (
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatPlain OutputFormat = "plain" // Borderless columns, no colour
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// OutputFormats lists the accepted --output values.
var OutputFormats = []OutputFormat{FormatTable, FormatPlain, FormatJSON, FormatYAML}

// ParseOutputFormat validates an --output value. The empty string selects FormatTable.
func ParseOutputFormat(s string) (OutputFormat, error) {
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range OutputFormats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	names := make([]string, len(OutputFormats))
	for i, f := range OutputFormats {
		names[i] = string(f)
	}
	return "", fmt.Errorf("unsupported output format %q (expected one of: %s)", s, strings.Join(names, ", "))
}

// writeStructured handles the machine-readable formats. It reports false
// for table and plain so the caller can render them itself.
func writeStructured(w io.Writer, format OutputFormat, v any) (bool, error) {
	switch format {
	case FormatJSON:
		return true, WriteJSON(w, v)
	case FormatYAML:
		return true, WriteYAML(w, v)
	default:
		return false, nil
	}
}
