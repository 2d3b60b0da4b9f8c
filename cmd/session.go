package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/agent"
	"github.com/LuckySilver0021/atom/internal/app"
	"github.com/LuckySilver0021/atom/internal/auth/session"
	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/internal/conversation"
)

// Chat-specific flags
var (
	chatMode           string
	chatConversationID string
)

// sessionReader replaces the terminal line reader in tests.
var sessionReader agent.LineReader

// wakeupCmd represents the wakeup command
var wakeupCmd = &cobra.Command{
	Use:   "wakeup",
	Short: "Pick a mode and start a session",
	Long: `Greet the logged-in user and offer the available modes:

  chat   Streaming conversation with the configured model
  tool   Not available yet
  agent  Not available yet

Examples:
  atom wakeup`,
	Args: cobra.NoArgs,
	RunE: runWakeup,
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a chat session",
	Long: `Start an interactive chat session.

Replies stream as they arrive. Press Ctrl+C to interrupt a reply and type
exit, quit or Ctrl+D to leave. Without --conversation a new conversation
is started, carrying the last messages of your previous one as context.

Examples:
  atom chat                            # Start a new chat
  atom chat --conversation <id>        # Resume a specific conversation`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(wakeupCmd)
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", string(conversation.ModeChat), "Session mode (chat, tool, agent)")
	chatCmd.Flags().StringVarP(&chatConversationID, "conversation", "c", "", "Conversation ID to resume")
}

func runWakeup(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	_, user, err := application.RequireUser(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Hello, %s!\n\n", user.DisplayName())

	mode, err := pickMode(bufio.NewReader(cmd.InOrStdin()), out)
	if err != nil {
		return err
	}
	return startSession(cmd, application, user, mode, "")
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, err := conversation.ParseMode(chatMode)
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	_, user, err := application.RequireUser(cmd.Context())
	if err != nil {
		return err
	}
	return startSession(cmd, application, user, mode, chatConversationID)
}

// pickMode offers the modes as a numbered list. An empty answer picks chat.
func pickMode(in *bufio.Reader, out io.Writer) (conversation.Mode, error) {
	fmt.Fprintln(out, "Choose a mode:")
	for i, m := range conversation.Modes {
		fmt.Fprintf(out, "  %d) %s\n", i+1, m)
	}

	for {
		fmt.Fprintf(out, "Mode [1]: ")
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read mode: %w", err)
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			if err == io.EOF && line == "" {
				fmt.Fprintln(out)
			}
			return conversation.Modes[0], nil
		}

		if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(conversation.Modes) {
			return conversation.Modes[n-1], nil
		}
		if m, parseErr := conversation.ParseMode(strings.ToLower(answer)); parseErr == nil {
			return m, nil
		}
		if err == io.EOF {
			return "", fmt.Errorf("invalid mode %q", answer)
		}
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Please enter 1-%d or a mode name.", len(conversation.Modes))))
	}
}

func startSession(cmd *cobra.Command, application *app.Application, user *session.User, mode conversation.Mode, conversationID string) error {
	out := cmd.OutOrStdout()
	terminal := sessionReader == nil && readline.IsTerminal(int(os.Stdout.Fd()))

	err := application.RunSession(cmd.Context(), user, app.SessionOptions{
		Mode:           mode,
		ConversationID: conversationID,
		Logger:         agent.NewLoggerWithWriter(globalFlags.Debug, terminal, out),
		Spinner:        terminal && !globalFlags.Quiet,
		Markdown:       terminal,
		Reader:         sessionReader,
	})
	if errors.Is(err, app.ErrModeUnavailable) {
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("The %s mode is not available yet.", mode)))
		return nil
	}
	return err
}
