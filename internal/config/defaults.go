package config

import "time"

const (
	DefaultServerURL      = "http://localhost:3005"
	DefaultClientID       = "atom-cli"
	DefaultScope          = "openid profile email"
	DefaultDeviceCodePath = "/api/auth/device/code"
	DefaultTokenPath      = "/api/auth/device/token"
	DefaultSessionPath    = "/api/me"
	DefaultServerTimeout  = 30 * time.Second

	DefaultCredentialsDir = "credentials"
	DefaultDatabaseFile   = "atom.db"
	DefaultHistoryFile    = "history"

	DefaultGoogleModel = "gemini-2.5-flash"
	DefaultGroqModel   = "llama-3.3-70b-versatile"

	DefaultContextMessages = 6
	DefaultTitleLength     = 50
	DefaultLogLevel        = "warn"
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() AtomConfig {
	return AtomConfig{
		Server: ServerConfig{
			URL:            DefaultServerURL,
			ClientID:       DefaultClientID,
			Scope:          DefaultScope,
			DeviceCodePath: DefaultDeviceCodePath,
			TokenPath:      DefaultTokenPath,
			SessionPath:    DefaultSessionPath,
			Timeout:        DefaultServerTimeout,
		},
		Credentials: CredentialsConfig{
			Dir: DefaultCredentialsDir,
		},
		Database: DatabaseConfig{
			Path: DefaultDatabaseFile,
		},
		Model: ModelConfig{
			Provider: ProviderGoogle,
		},
		Chat: ChatConfig{
			ContextMessages: DefaultContextMessages,
			TitleLength:     DefaultTitleLength,
			HistoryFile:     DefaultHistoryFile,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// DefaultModelName returns the model used by a provider when none is configured.
func DefaultModelName(p ModelProvider) string {
	if p == ProviderGroq {
		return DefaultGroqModel
	}
	return DefaultGoogleModel
}
