package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/LuckySilver0021/atom/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/atom"
	configFileName = "config.yaml"
)

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from configPath/config.yaml on top of the
// defaults, then applies environment overrides and resolves relative paths
// against configPath.
func LoadConfig(configPath string) (AtomConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	// #nosec G304 -- path is the user's own config directory
	data, err := os.ReadFile(configFilePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return AtomConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	default:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return AtomConfig{}, err
	}

	applyEnv(&config)
	resolvePaths(&config, configPath)

	if config.Model.Name == "" {
		config.Model.Name = DefaultModelName(config.Model.Provider)
	}

	return config, nil
}

// applyEnv overlays environment variables. Names follow the conventions of
// the hosted service so an existing .env keeps working.
func applyEnv(c *AtomConfig) {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookupEnv(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	setString(&c.Server.URL, "ATOM_SERVER_URL")
	setString(&c.Server.ClientID, "ATOM_CLIENT_ID", "GITHUB_CLIENT_ID")
	setString(&c.Model.GoogleAPIKey, "GOOGLE_GENERATIVE_AI_API_KEY")
	setString(&c.Model.GroqAPIKey, "GROQ_API_KEY")
	setString(&c.Database.Path, "ATOM_DB_PATH")
	setString(&c.Logging.Level, "ATOM_LOG_LEVEL")

	var provider string
	setString(&provider, "AI_PROVIDER")
	if provider != "" {
		c.Model.Provider = ModelProvider(strings.ToLower(provider))
	}

	// GROQ_MODEL only applies to the groq provider; ATOM_MODEL always wins.
	if c.Model.Provider == ProviderGroq {
		setString(&c.Model.Name, "GROQ_MODEL")
	}
	setString(&c.Model.Name, "ATOM_MODEL")
}

func resolvePaths(c *AtomConfig, base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Credentials.Dir = abs(c.Credentials.Dir)
	c.Database.Path = abs(c.Database.Path)
	c.Chat.HistoryFile = abs(c.Chat.HistoryFile)
	c.Logging.File = abs(c.Logging.File)
}

// CredentialFile returns the path of the stored access credential.
func (c AtomConfig) CredentialFile() string {
	return filepath.Join(c.Credentials.Dir, "token.json")
}
