package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withEnv replaces the environment lookup for the duration of the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	original := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = original })
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0600))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.Server.URL)
	assert.Equal(t, DefaultSessionPath, cfg.Server.SessionPath)
	assert.Equal(t, ProviderGoogle, cfg.Model.Provider)
	assert.Equal(t, DefaultGoogleModel, cfg.Model.Name)
	assert.Equal(t, DefaultContextMessages, cfg.Chat.ContextMessages)
	assert.Equal(t, DefaultTitleLength, cfg.Chat.TitleLength)
	assert.Equal(t, filepath.Join(dir, "credentials", "token.json"), cfg.CredentialFile())
	assert.Equal(t, filepath.Join(dir, DefaultDatabaseFile), cfg.Database.Path)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  url: https://atom.example.com
  timeout: 5s
model:
  provider: groq
chat:
  contextMessages: 3
  persistPartial: true
database:
  path: /var/lib/atom/atom.db
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://atom.example.com", cfg.Server.URL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultTokenPath, cfg.Server.TokenPath)
	assert.Equal(t, ProviderGroq, cfg.Model.Provider)
	assert.Equal(t, DefaultGroqModel, cfg.Model.Name)
	assert.Equal(t, 3, cfg.Chat.ContextMessages)
	assert.True(t, cfg.Chat.PersistPartial)
	assert.Equal(t, "/var/lib/atom/atom.db", cfg.Database.Path)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	withEnv(t, map[string]string{
		"ATOM_SERVER_URL":  "https://env.example.com",
		"GITHUB_CLIENT_ID": "legacy-client",
		"AI_PROVIDER":      "GROQ",
		"GROQ_API_KEY":     "gsk-test",
		"GROQ_MODEL":       "mixtral",
	})
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  url: https://file.example.com\n")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.URL)
	assert.Equal(t, "legacy-client", cfg.Server.ClientID)
	assert.Equal(t, ProviderGroq, cfg.Model.Provider)
	assert.Equal(t, "gsk-test", cfg.Model.APIKey())
	assert.Equal(t, "mixtral", cfg.Model.Name)
}

func TestLoadConfig_AtomClientIDBeatsLegacy(t *testing.T) {
	withEnv(t, map[string]string{
		"ATOM_CLIENT_ID":   "atom",
		"GITHUB_CLIENT_ID": "legacy",
	})

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "atom", cfg.Server.ClientID)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	withEnv(t, nil)
	dir := t.TempDir()
	writeConfig(t, dir, "server: [unterminated")

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, GetDefaultConfig().Validate())
	})

	t.Run("all problems reported together", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Server.URL = "not a url"
		cfg.Server.ClientID = ""
		cfg.Server.TokenPath = "token"

		err := cfg.Validate()
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 3)
	})

	t.Run("context messages out of range", func(t *testing.T) {
		withEnv(t, nil)
		dir := t.TempDir()
		writeConfig(t, dir, "chat:\n  contextMessages: 20\n")

		cfg, err := LoadConfig(dir)
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat.contextMessages")

		cfg.Chat.ContextMessages = -1
		assert.Error(t, cfg.Validate())

		cfg.Chat.ContextMessages = DefaultContextMessages
		assert.NoError(t, cfg.Validate())
	})

	t.Run("broken summary template", func(t *testing.T) {
		cfg := GetDefaultConfig()
		cfg.Chat.SummaryTemplate = "{{ .Title "
		assert.Error(t, cfg.Validate())
	})
}

func TestValidateModel(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Error(t, cfg.ValidateModel(), "google without key")

	cfg.Model.GoogleAPIKey = "key"
	assert.NoError(t, cfg.ValidateModel())

	cfg.Model.Provider = "openai"
	assert.Error(t, cfg.ValidateModel())
}
