package cmd

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for atom",
	Long: `Manage the credential atom uses to identify you.

The auth command group provides subcommands to log in with a device code,
log out, and inspect the stored credential. login, logout and whoami are
also available as top-level commands.

Examples:
  atom auth login                      # Log in with a device code
  atom auth status                     # Show the stored credential
  atom auth whoami                     # Show the logged-in user
  atom auth logout                     # Remove the stored credential
  atom auth logout --yes               # Log out without confirmation`,
}

var (
	authLoginCmd  = newLoginCmd()
	authLogoutCmd = newLogoutCmd()
	authWhoamiCmd = newWhoamiCmd()
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored credential",
	Long: `Show whether a credential is stored and when it expires.

Unlike whoami, status never contacts the server.

Examples:
  atom auth status`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		Long: `Remove the stored credential and forget the session locally.

A chat session running in another terminal notices the logout and ends.

Examples:
  atom logout                          # Asks for confirmation
  atom logout --yes                    # Logs out without asking`,
		Args: cobra.NoArgs,
		RunE: runAuthLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Long: `Show the user the stored credential belongs to.

The session is looked up on the server unless it is already known locally.
Exits with code 2 when nobody is logged in or the credential expired.

Examples:
  atom whoami`,
		Args: cobra.NoArgs,
		RunE: runAuthWhoami,
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrintln(w io.Writer, a ...interface{}) {
	if !globalFlags.Quiet {
		fmt.Fprintln(w, a...)
	}
}

// confirm asks question unless --yes was given.
func confirm(cmd *cobra.Command, in *bufio.Reader, question string, def bool) (bool, error) {
	if globalFlags.Yes {
		return true, nil
	}
	return cli.Confirm(in, cmd.OutOrStdout(), question, def)
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authWhoamiCmd)

	// Top-level shortcuts.
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	store := application.Services().Credentials

	cred, err := store.Load()
	if err != nil {
		return err
	}
	if cred == nil {
		fmt.Fprintln(out, "You are not logged in.")
		return nil
	}

	ok, err := confirm(cmd, bufio.NewReader(cmd.InOrStdin()), "Log out of atom?", false)
	if err != nil {
		return err
	}
	if !ok {
		authPrintln(out, "Logout cancelled.")
		return nil
	}

	removed, err := store.Clear()
	if err != nil {
		return err
	}
	if err := application.Services().Resolver.Forget(cmd.Context(), cred.AccessToken); err != nil {
		logging.Warn("Auth", "Failed to forget the local session: %v", err)
	}
	if !removed {
		fmt.Fprintln(out, "You are not logged in.")
		return nil
	}

	fmt.Fprintln(out, cli.FormatSuccess("Logged out."))
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	cred, user, err := application.RequireUser(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged in as %s\n", text.Bold.Sprint(user.DisplayName()))
	if user.Email != "" && user.Email != user.DisplayName() {
		fmt.Fprintf(out, "  Email:    %s\n", user.Email)
	}
	fmt.Fprintf(out, "  User ID:  %s\n", user.ID)
	if expiry, ok := cred.Expiry(); ok {
		fmt.Fprintf(out, "  Expires:  %s\n", cli.FormatExpiry(expiry, time.Now()))
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	store := application.Services().Credentials

	fmt.Fprintln(out, "atom")
	fmt.Fprintf(out, "  Server:      %s\n", application.Config().Server.URL)
	fmt.Fprintf(out, "  Credential:  %s\n", store.Path())

	cred, err := store.Load()
	if err != nil {
		return err
	}
	if cred == nil {
		fmt.Fprintf(out, "  Status:      %s\n", text.FgYellow.Sprint("Not logged in"))
		authPrintln(out, "\nRun: atom login")
		return nil
	}

	expired := store.IsExpired(cred)
	if expired {
		fmt.Fprintf(out, "  Status:      %s\n", text.FgRed.Sprint("Expired"))
	} else {
		fmt.Fprintf(out, "  Status:      %s\n", text.FgGreen.Sprint("Logged in"))
	}

	expiry, expires := cred.Expiry()
	if expires {
		fmt.Fprintf(out, "  Expires:     %s\n", cli.FormatExpiry(expiry, time.Now()))
	} else {
		fmt.Fprintln(out, "  Expires:     never")
	}
	if cred.Scope != "" {
		fmt.Fprintf(out, "  Scope:       %s\n", cred.Scope)
	}
	if expired {
		authPrintln(out, "\nRun: atom login")
	}
	return nil
}
