package config

import "time"

// AtomConfig is the top-level configuration structure for atom.
type AtomConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`
	Database    DatabaseConfig    `yaml:"database,omitempty"`
	Model       ModelConfig       `yaml:"model"`
	Chat        ChatConfig        `yaml:"chat,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// ServerConfig describes the identity provider that issues device codes and
// answers session lookups.
type ServerConfig struct {
	URL            string        `yaml:"url"`                      // Base URL (default: http://localhost:3005)
	ClientID       string        `yaml:"clientId,omitempty"`       // OAuth client id registered with the provider
	Scope          string        `yaml:"scope,omitempty"`          // Requested scope (default: "openid profile email")
	DeviceCodePath string        `yaml:"deviceCodePath,omitempty"` // Device authorization endpoint path
	TokenPath      string        `yaml:"tokenPath,omitempty"`      // Token endpoint path
	SessionPath    string        `yaml:"sessionPath,omitempty"`    // Session lookup path (default: /api/me)
	Timeout        time.Duration `yaml:"timeout,omitempty"`        // Per-request HTTP timeout
}

// CredentialsConfig controls where the access credential is kept.
type CredentialsConfig struct {
	// Dir is the directory holding token.json. Relative to the config
	// directory when not absolute.
	Dir string `yaml:"dir,omitempty"`
}

// DatabaseConfig points at the local SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ModelProvider names a streaming model backend.
type ModelProvider string

const (
	ProviderGoogle ModelProvider = "google"
	ProviderGroq   ModelProvider = "groq"
)

// ModelConfig selects and configures the model gateway.
type ModelConfig struct {
	Provider     ModelProvider `yaml:"provider"`
	Name         string        `yaml:"name,omitempty"`
	GoogleAPIKey string        `yaml:"googleApiKey,omitempty"`
	GroqAPIKey   string        `yaml:"groqApiKey,omitempty"`
	BaseURL      string        `yaml:"baseURL,omitempty"` // Override for the provider endpoint
	Temperature  *float64      `yaml:"temperature,omitempty"`
}

// APIKey returns the key for the selected provider.
func (m ModelConfig) APIKey() string {
	switch m.Provider {
	case ProviderGroq:
		return m.GroqAPIKey
	default:
		return m.GoogleAPIKey
	}
}

// ChatConfig tunes the chat session.
type ChatConfig struct {
	ContextMessages int    `yaml:"contextMessages,omitempty"` // Messages carried over from the previous conversation
	TitleLength     int    `yaml:"titleLength,omitempty"`     // Runes kept when deriving a title
	PersistPartial  bool   `yaml:"persistPartial,omitempty"`  // Persist partial assistant text after a failed stream
	SummaryTemplate string `yaml:"summaryTemplate,omitempty"` // text/template for the carry-over system message
	HistoryFile     string `yaml:"historyFile,omitempty"`     // readline history, relative to the config directory
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}
