package cli

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %s", UserMessage(err))
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprintf("⚠ %s", msg)
}

// Confirm asks a yes/no question on out and reads the answer from in.
// An empty answer returns def; end of input returns false.
func Confirm(in io.Reader, out io.Writer, question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(out, "%s %s: ", question, hint)

	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
	}
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	if err == io.EOF && response == "" {
		fmt.Fprintln(out)
		return false, nil
	}

	switch strings.TrimSpace(strings.ToLower(response)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// browserCommand returns the command that opens url on the current platform.
func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens url in the default web browser without waiting for it.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatExpiry formats expiresAt relative to now as "in X" or "expired X ago".
func FormatExpiry(expiresAt, now time.Time) string {
	remaining := expiresAt.Sub(now)
	if remaining > 0 {
		return "in " + FormatDuration(remaining)
	}
	return text.FgYellow.Sprintf("expired %s ago", FormatDuration(-remaining))
}
