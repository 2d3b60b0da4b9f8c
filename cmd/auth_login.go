package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/auth/device"
	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/internal/formatting"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// Login-specific flags
var loginNoBrowser bool

// Replaced in tests.
var (
	openBrowser = cli.OpenBrowser
	loginWaiter func(ctx context.Context, d time.Duration) error
)

// errLoginCanceled is returned when the user interrupts the polling.
var errLoginCanceled = errors.New("login canceled")

func newLoginCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "login",
		Short: "Log in with a device code",
		Long: `Log in to atom with the OAuth device authorization flow.

atom shows a short code and a URL. Open the URL in any browser, approve the
code, and atom stores the resulting credential in the configuration
directory. Press Ctrl+C to abort while waiting for approval.

Examples:
  atom login                           # Log in, offering to open the browser
  atom login --no-browser              # Only print the URL
  atom login --yes                     # Re-authenticate without asking`,
		Args: cobra.NoArgs,
		RunE: runAuthLogin,
	}
	c.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Do not offer to open the verification URL in a browser")
	return c
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	cfg := application.Config()
	services := application.Services()

	previous, valid, err := services.Credentials.LoadValid()
	if err != nil {
		return err
	}
	if valid {
		again, err := confirm(cmd, in, "You are already logged in. Log in again?", false)
		if err != nil {
			return err
		}
		if !again {
			fmt.Fprintln(out, "Keeping the current session.")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	spin := formatting.NewSpinner(out, "Waiting for approval...", !globalFlags.Quiet)
	opts := []device.ClientOption{
		device.WithObserver(func(t device.Transition) {
			if t.To == device.StateSlowed {
				spin.Update(fmt.Sprintf("Waiting for approval (polling every %s)...", t.Interval))
			}
		}),
	}
	if loginWaiter != nil {
		opts = append(opts, device.WithWaiter(loginWaiter))
	}
	client := application.DeviceClient(opts...)

	session, err := client.RequestDeviceCode(ctx, cfg.Server.ClientID, cfg.Server.Scope)
	if err != nil {
		return loginError(ctx, err)
	}

	url := device.VerificationURL(session, cfg.Server.URL)
	fmt.Fprintln(out, formatting.InfoBox("Log in to atom", fmt.Sprintf(
		"Open:  %s\nCode:  %s\n\nThe code expires %s.",
		url, device.FormatUserCode(session.UserCode), cli.FormatExpiry(session.ExpiresAt, time.Now()))))

	if !loginNoBrowser {
		if err := offerBrowser(cmd, in, url); err != nil {
			return err
		}
	}

	spin.Start()
	cred, err := client.PollForToken(ctx, session, cfg.Server.ClientID)
	if err != nil {
		spin.Fail("Login failed")
		return loginError(ctx, err)
	}
	spin.Succeed("Approved")

	if err := services.Credentials.Save(cred); err != nil {
		return err
	}
	if previous != nil && previous.AccessToken != cred.AccessToken {
		if err := services.Resolver.Forget(ctx, previous.AccessToken); err != nil {
			logging.Warn("Auth", "Failed to forget the previous session: %v", err)
		}
	}

	user, err := services.Resolver.ResolveUser(ctx, cred.AccessToken)
	if err != nil || user == nil {
		logging.Warn("Auth", "Logged in but the user could not be resolved: %v", err)
		fmt.Fprintln(out, cli.FormatSuccess("Logged in."))
		return nil
	}

	fmt.Fprintln(out, formatting.SuccessBox("Logged in", fmt.Sprintf("Welcome, %s!", user.DisplayName())))
	authPrintln(out, "Run 'atom wakeup' to start a session.")
	return nil
}

func offerBrowser(cmd *cobra.Command, in *bufio.Reader, url string) error {
	open, err := confirm(cmd, in, "Open the browser now?", true)
	if err != nil {
		return err
	}
	if !open {
		return nil
	}
	if err := openBrowser(url); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("Could not open a browser, please open the URL manually."))
		logging.Debug("Auth", "Opening browser failed: %v", err)
	}
	return nil
}

// loginError maps device flow failures to the errors the exit code depends on.
func loginError(ctx context.Context, err error) error {
	switch {
	case device.IsTerminal(err):
		return &cli.AuthFailedError{Reason: err}
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return errLoginCanceled
	default:
		return err
	}
}
