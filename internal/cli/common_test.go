package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{"yes", "y\n", false, true},
		{"full yes", "YES\n", false, true},
		{"no", "n\n", true, false},
		{"empty uses default true", "\n", true, true},
		{"empty uses default false", "\n", false, false},
		{"eof", "", true, false},
		{"no trailing newline", "yes", false, true},
		{"anything else", "maybe\n", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(strings.NewReader(tt.input), &out, "Continue?", tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "Continue?")
		})
	}
}

func TestConfirmHint(t *testing.T) {
	var out bytes.Buffer
	_, _ = Confirm(strings.NewReader("\n"), &out, "Open browser?", true)
	assert.Contains(t, out.String(), "[Y/n]")

	out.Reset()
	_, _ = Confirm(strings.NewReader("\n"), &out, "Log out?", false)
	assert.Contains(t, out.String(), "[y/N]")
}

func TestBrowserCommand(t *testing.T) {
	cmd, err := browserCommand("linux", "http://x")
	require.NoError(t, err)
	assert.Equal(t, []string{"xdg-open", "http://x"}, cmd.Args)

	cmd, err = browserCommand("darwin", "http://x")
	require.NoError(t, err)
	assert.Equal(t, "open", cmd.Args[0])

	_, err = browserCommand("plan9", "http://x")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "expired", FormatDuration(-time.Second))
	assert.Equal(t, "< 1 minute", FormatDuration(30*time.Second))
	assert.Equal(t, "1 minute", FormatDuration(time.Minute))
	assert.Equal(t, "45 minutes", FormatDuration(45*time.Minute))
	assert.Equal(t, "1 hour", FormatDuration(time.Hour))
	assert.Equal(t, "5 hours", FormatDuration(5*time.Hour))
	assert.Equal(t, "1 day", FormatDuration(24*time.Hour))
	assert.Equal(t, "3 days", FormatDuration(72*time.Hour))
}

func TestFormatExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "in 2 hours", FormatExpiry(now.Add(2*time.Hour), now))
	assert.Contains(t, FormatExpiry(now.Add(-3*time.Minute), now), "expired 3 minutes ago")
}
