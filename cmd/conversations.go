package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/formatting"
)

var conversationsOutput string

// conversationsCmd represents the conversations command group
var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "List, show and delete your conversations",
	Long: `Inspect the conversations stored for the logged-in user.

Examples:
  atom conversations list              # Most recent first
  atom conversations list -o json      # Machine-readable listing
  atom conversations show <id>         # Print a transcript
  atom conversations delete <id>       # Delete a conversation and its messages`,
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your conversations",
	Long: `List your conversations, most recently updated first.

Examples:
  atom conversations list
  atom conversations list -o yaml`,
	Args: cobra.NoArgs,
	RunE: runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the transcript of a conversation",
	Long: `Print every message of a conversation in order.

Examples:
  atom conversations show 5f0c...
  atom conversations show 5f0c... -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Long: `Delete a conversation together with its messages.

Examples:
  atom conversations delete 5f0c...
  atom conversations delete 5f0c... --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runConversationsDelete,
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)

	cli.RegisterOutputFlag(conversationsListCmd, &conversationsOutput)
	cli.RegisterOutputFlag(conversationsShowCmd, &conversationsOutput)
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseOutputFormat(conversationsOutput)
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	_, user, err := application.RequireUser(ctx)
	if err != nil {
		return err
	}

	repo := application.Services().Conversations
	convs, err := repo.ListUserConversations(ctx, user.ID)
	if err != nil {
		return err
	}

	views := make([]formatting.ConversationView, 0, len(convs))
	for _, c := range convs {
		count, err := repo.CountMessages(ctx, c.ID)
		if err != nil {
			return err
		}
		views = append(views, formatting.NewConversationView(c, count))
	}

	if len(views) == 0 && format == formatting.FormatTable {
		fmt.Fprintln(cmd.OutOrStdout(), "No conversations yet. Run 'atom chat' to start one.")
		return nil
	}
	return formatting.WriteConversations(cmd.OutOrStdout(), format, views)
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseOutputFormat(conversationsOutput)
	if err != nil {
		return err
	}

	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	_, user, err := application.RequireUser(ctx)
	if err != nil {
		return err
	}

	repo := application.Services().Conversations
	conv, err := repo.GetConversation(ctx, user.ID, args[0])
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s: %w", args[0], conversation.ErrNotFound)
	}

	msgs, err := repo.GetMessages(ctx, conv.ID)
	if err != nil {
		return err
	}

	var md *formatting.MarkdownRenderer
	if format == formatting.FormatTable {
		md = formatting.NewMarkdownRenderer(formatting.DefaultWrapWidth)
	}
	return formatting.WriteTranscript(cmd.OutOrStdout(), format, formatting.NewTranscriptView(*conv, msgs), md)
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	_, user, err := application.RequireUser(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	repo := application.Services().Conversations
	conv, err := repo.GetConversation(ctx, user.ID, args[0])
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s: %w", args[0], conversation.ErrNotFound)
	}

	ok, err := confirm(cmd, bufio.NewReader(cmd.InOrStdin()), fmt.Sprintf("Delete %q?", conv.Title), false)
	if err != nil {
		return err
	}
	if !ok {
		authPrintln(out, "Nothing deleted.")
		return nil
	}

	if err := repo.DeleteConversation(ctx, user.ID, conv.ID); err != nil {
		return err
	}
	fmt.Fprintln(out, formatting.SuccessBox("Deleted", conv.Title))
	return nil
}
