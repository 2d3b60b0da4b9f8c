package cli

import (
	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/config"
)

// GlobalFlags holds the flags shared by every atom command.
type GlobalFlags struct {
	// ConfigPath is the configuration directory holding config.yaml,
	// the credential file and the database.
	ConfigPath string
	// Debug lowers the log level to DEBUG.
	Debug bool
	// Yes answers every confirmation prompt with yes.
	Yes bool
	// Quiet suppresses spinners and non-essential output.
	Quiet bool
}

// RegisterGlobalFlags registers the shared flags as persistent flags of cmd.
//
// The registered flags are:
//   - --config-path: Configuration directory (default ~/.config/atom)
//   - --debug: Enable debug logging
//   - --yes/-y: Skip confirmation prompts
//   - --quiet/-q: Suppress non-essential output
func RegisterGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Yes, "yes", "y", false, "Skip confirmation prompts")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// RegisterOutputFlag registers --output/-o on cmd.
func RegisterOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", "table", "Output format (table, plain, json, yaml)")
}
