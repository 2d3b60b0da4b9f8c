package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/app"
	"github.com/LuckySilver0021/atom/internal/cli"
)

// globalFlags holds the persistent flags shared by every command.
var globalFlags cli.GlobalFlags

// rootCmd represents the base command for the atom application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "atom",
	Short: "Chat with an AI assistant from your terminal",
	Long: `atom is a terminal assistant. Log in once with a device code approved in
your browser, then start streaming chat sessions whose conversations are
kept locally and can be resumed later.

Examples:
  atom login                # Log in with a device code
  atom wakeup               # Pick a mode and start a session
  atom chat                 # Start a chat session directly
  atom conversations list   # List your conversations`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Errors are printed once by Execute with their exit code.
	SilenceErrors: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It runs the root command and exits with the code matching the returned error.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "atom version %s\n" .Version}}`)

	// SIGINT is left to the commands: it interrupts a reply or a login,
	// not the whole process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(cli.ExitCode(err))
	}
}

// newApplication bootstraps configuration, logging and services from the
// global flags.
func newApplication() (*app.Application, error) {
	return app.NewApplication(app.NewConfig(globalFlags.Debug, globalFlags.ConfigPath))
}

func init() {
	cli.RegisterGlobalFlags(rootCmd, &globalFlags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
