package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/LuckySilver0021/atom/internal/agent"
	"github.com/LuckySilver0021/atom/internal/auth/session"
	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/formatting"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// ErrModeUnavailable is returned for modes that have no session yet.
var ErrModeUnavailable = errors.New("mode is not available yet")

// SessionOptions selects what a chat session runs on.
type SessionOptions struct {
	Mode           conversation.Mode
	ConversationID string
	Logger         *agent.Logger
	Spinner        bool
	Markdown       bool

	// Reader replaces the terminal, e.g. in tests.
	Reader agent.LineReader
}

// RunSession starts an interactive session for user in the requested mode.
// Only chat mode runs a session; the others report ErrModeUnavailable.
func (a *Application) RunSession(ctx context.Context, user *session.User, opts SessionOptions) error {
	switch opts.Mode {
	case conversation.ModeChat:
	case conversation.ModeTool, conversation.ModeAgent:
		return fmt.Errorf("%s %w", opts.Mode, ErrModeUnavailable)
	default:
		return fmt.Errorf("unknown mode %q", opts.Mode)
	}

	controller, _, err := a.NewController()
	if err != nil {
		return err
	}

	conv, err := controller.OpenConversation(ctx, user.ID, opts.Mode, opts.ConversationID)
	if err != nil {
		return err
	}
	logging.Info("Session", "Starting %s session in conversation %s", opts.Mode, conv.ID)

	replOpts := []agent.Option{
		agent.WithHistoryFile(a.Config().Chat.HistoryFile),
		agent.WithCredentialWatcher(a.services.Credentials),
		agent.WithSpinner(opts.Spinner),
	}
	if opts.Markdown {
		replOpts = append(replOpts, agent.WithMarkdown(formatting.NewMarkdownRenderer(formatting.DefaultWrapWidth)))
	}
	if opts.Reader != nil {
		replOpts = append(replOpts, agent.WithLineReader(opts.Reader))
	}

	repl := agent.NewREPL(controller, a.services.Conversations, conv, opts.Logger, replOpts...)
	return repl.Run(ctx)
}
