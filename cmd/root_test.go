package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuckySilver0021/atom/internal/auth/credstore"
	"github.com/LuckySilver0021/atom/internal/cli"
)

var atomEnv = []string{
	"ATOM_SERVER_URL", "ATOM_CLIENT_ID", "GITHUB_CLIENT_ID", "AI_PROVIDER",
	"GOOGLE_GENERATIVE_AI_API_KEY", "GROQ_API_KEY", "GROQ_MODEL", "ATOM_MODEL",
	"ATOM_DB_PATH", "ATOM_LOG_LEVEL",
}

// testConfigDir returns a config directory whose config.yaml holds yaml.
func testConfigDir(t *testing.T, yaml string) string {
	t.Helper()
	for _, key := range atomEnv {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	return dir
}

func serverConfig(url string) string {
	return "server:\n  url: " + url + "\n"
}

// executeCommand runs the root command with args and stdin, starting from
// default flag values.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	globalFlags = cli.GlobalFlags{}
	loginNoBrowser = false
	chatMode = "chat"
	chatConversationID = ""
	conversationsOutput = "table"
	if f := rootCmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func storeCredential(t *testing.T, dir, token string, issued time.Time) {
	t.Helper()
	err := credstore.New(filepath.Join(dir, "credentials", "token.json")).Save(&credstore.Credential{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		CreatedAt:   issued.UnixMilli(),
	})
	require.NoError(t, err)
}

// lineReader feeds fixed lines to the chat session, then io.EOF.
type lineReader struct {
	lines []string
}

func (l *lineReader) Readline() (string, error) {
	if len(l.lines) == 0 {
		return "", io.EOF
	}
	line := l.lines[0]
	l.lines = l.lines[1:]
	return line, nil
}

func (l *lineReader) SetPrompt(string) {}
func (l *lineReader) Close() error    { return nil }

func TestSetVersion(t *testing.T) {
	originalVersion := GetVersion()
	defer SetVersion(originalVersion)

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", GetVersion())
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "atom", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
	assert.True(t, rootCmd.SilenceErrors)

	for _, name := range []string{"config-path", "debug", "yes", "quiet"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "atom version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())
	assert.Equal(t, "atom version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}

	for _, expected := range []string{
		"version", "self-update", "auth", "login", "logout", "whoami",
		"wakeup", "chat", "conversations",
	} {
		assert.True(t, found[expected], "expected subcommand %s to be registered", expected)
	}

	authFound := make(map[string]bool)
	for _, c := range authCmd.Commands() {
		authFound[c.Name()] = true
	}
	for _, expected := range []string{"login", "logout", "whoami", "status"} {
		assert.True(t, authFound[expected], "expected auth subcommand %s", expected)
	}
}

func TestRootCommandHelp(t *testing.T) {
	out, err := executeCommand(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "atom")
	assert.Contains(t, out, "device code")
}
