package app

import (
	"io"

	"github.com/LuckySilver0021/atom/internal/config"
)

// Config holds the runtime options of one atom invocation.
type Config struct {
	// Debug enables debug logging regardless of the configured level.
	Debug bool

	// ConfigPath is the configuration directory (holds config.yaml).
	ConfigPath string

	// LogOutput receives log lines when no log file is configured.
	// Defaults to stderr.
	LogOutput io.Writer

	// AtomConfig is loaded from ConfigPath when nil.
	AtomConfig *config.AtomConfig
}

// NewConfig creates a new application configuration.
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
