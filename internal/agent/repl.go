package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LuckySilver0021/atom/internal/auth/credstore"
	"github.com/LuckySilver0021/atom/internal/chat"
	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/formatting"
	"github.com/LuckySilver0021/atom/internal/gateway"
)

// promptPrefixUnicode is the circled "a" shown in front of the prompt.
const promptPrefixUnicode = "ⓐ"

// promptPrefixASCII is the fallback prefix for terminals without unicode support.
const promptPrefixASCII = "atom"

// promptChevronUnicode is the guillemet separator used in the prompt.
const promptChevronUnicode = "»"

// promptChevronASCII is the fallback chevron for terminals without unicode support.
const promptChevronASCII = ">"

// maxTitleLength is the maximum length of the conversation title in the prompt.
const maxTitleLength = 28

// ErrLoggedOut ends a session whose credential was removed by another process.
var ErrLoggedOut = fmt.Errorf("credential removed during the chat session: %w", &cli.AuthRequiredError{})

// LineReader reads one line of input at a time. *readline.Instance implements it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// CredentialWatcher reports changes to the stored credential.
// *credstore.Store implements it.
type CredentialWatcher interface {
	Watch(ctx context.Context, onChange func(credstore.ChangeKind)) error
}

// Option configures a REPL.
type Option func(*REPL)

// WithHistoryFile sets the readline history file.
func WithHistoryFile(path string) Option {
	return func(r *REPL) {
		r.historyFile = path
	}
}

// WithMarkdown renders replayed assistant messages as markdown.
func WithMarkdown(md *formatting.MarkdownRenderer) Option {
	return func(r *REPL) {
		r.markdown = md
	}
}

// WithCredentialWatcher ends the session when the credential is removed.
func WithCredentialWatcher(w CredentialWatcher) Option {
	return func(r *REPL) {
		r.credentials = w
	}
}

// WithLineReader replaces the readline terminal, e.g. in tests.
func WithLineReader(lr LineReader) Option {
	return func(r *REPL) {
		r.reader = lr
	}
}

// WithSpinner shows a spinner while waiting for the first chunk of a reply.
func WithSpinner(enabled bool) Option {
	return func(r *REPL) {
		r.spinner = enabled
	}
}

// REPL is the interactive chat loop. Each line of input is either a slash
// command or a message sent to the model through the chat controller.
//
// The session ends on exit/quit, Ctrl+D, context cancellation or when the
// stored credential disappears.
type REPL struct {
	controller *chat.Controller
	repo       conversation.Repository
	conv       *conversation.Conversation
	logger     *Logger

	reader      LineReader
	historyFile string
	markdown    *formatting.MarkdownRenderer
	credentials CredentialWatcher
	spinner     bool
	useUnicode  bool
	commands    *Registry

	mu        sync.Mutex
	loggedOut bool
	cancel    context.CancelFunc
}

// NewREPL creates a REPL for conv.
func NewREPL(controller *chat.Controller, repo conversation.Repository, conv *conversation.Conversation, logger *Logger, opts ...Option) *REPL {
	if logger == nil {
		logger = NewDevNullLogger()
	}
	r := &REPL{
		controller: controller,
		repo:       repo,
		conv:       conv,
		logger:     logger,
		useUnicode: detectUnicodeSupport(),
		commands:   NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerCommands()
	return r
}

// detectUnicodeSupport checks if the terminal likely supports unicode characters.
// Returns false for dumb terminals or when neither the locale nor TERM
// suggests unicode.
func detectUnicodeSupport() bool {
	term := os.Getenv("TERM")
	lang := os.Getenv("LANG")
	lcAll := os.Getenv("LC_ALL")

	// Dumb terminals or no terminal don't support unicode
	if term == "" || term == "dumb" {
		return false
	}

	for _, v := range []string{lang, lcAll} {
		if strings.Contains(strings.ToLower(v), "utf-8") || strings.Contains(strings.ToLower(v), "utf8") {
			return true
		}
	}

	// vt100 is intentionally excluded
	unicodeTerminals := []string{"xterm", "screen", "tmux", "alacritty", "kitty", "iterm"}
	termLower := strings.ToLower(term)
	for _, ut := range unicodeTerminals {
		if strings.Contains(termLower, ut) {
			return true
		}
	}

	return false
}

// buildPrompt creates the prompt from the conversation title, e.g.
// "ⓐ Tell me about Paris »". Falls back to ASCII characters if the terminal
// doesn't support unicode.
func (r *REPL) buildPrompt() string {
	prefix := promptPrefixASCII
	chevron := promptChevronASCII
	if r.useUnicode {
		prefix = promptPrefixUnicode
		chevron = promptChevronUnicode
	}

	parts := []string{prefix}
	if r.conv != nil && r.conv.Title != "" {
		parts = append(parts, truncateTitle(r.conv.Title))
	}
	parts = append(parts, chevron)

	return strings.Join(parts, " ") + " "
}

// truncateTitle shortens long titles for the prompt, keeping both the start
// and the end of the title.
// Example: "production-us-east-1-cluster-blue" becomes "production-us-e...uster-blue"
func truncateTitle(name string) string {
	runes := []rune(name)
	if len(runes) <= maxTitleLength {
		return name
	}

	// 60% of the room before the ellipsis, 40% after
	ellipsis := "..."
	available := maxTitleLength - len(ellipsis)
	startLen := (available * 3) / 5
	endLen := available - startLen

	return string(runes[:startLen]) + ellipsis + string(runes[len(runes)-endLen:])
}

// updatePrompt refreshes the readline prompt after the title changed.
func (r *REPL) updatePrompt() {
	if r.reader != nil {
		r.reader.SetPrompt(r.buildPrompt())
	}
}

// Run shows the conversation header, replays earlier messages and then reads
// input until the session ends.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer r.controller.End()

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	if r.reader == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          r.buildPrompt(),
			HistoryFile:     r.historyFile,
			AutoComplete:    r.createCompleter(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",

			HistorySearchFold:   true,
			FuncFilterInputRune: filterInput,
		})
		if err != nil {
			return fmt.Errorf("failed to create readline instance: %w", err)
		}
		r.reader = rl
	} else {
		r.updatePrompt()
	}
	defer r.reader.Close()

	if r.credentials != nil {
		if err := r.credentials.Watch(ctx, r.onCredentialChange); err != nil {
			r.logger.Debug("Credential watcher unavailable: %v", err)
		}
	}

	if err := r.showConversation(ctx); err != nil {
		return err
	}
	r.showHelp()

	for {
		if r.isLoggedOut() {
			return ErrLoggedOut
		}
		select {
		case <-ctx.Done():
			r.logger.Info("Goodbye!")
			return nil
		default:
		}

		line, err := r.reader.Readline()
		if r.isLoggedOut() {
			return ErrLoggedOut
		}
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			r.logger.Info("Goodbye!")
			return nil
		case err != nil:
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if isExit(input) {
			r.logger.Info("Goodbye!")
			return nil
		}

		if strings.HasPrefix(input, "/") {
			if err := r.executeCommand(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					r.logger.Info("Goodbye!")
					return nil
				}
				r.logger.Error("Error: %v", err)
			}
			continue
		}

		if err := r.sendMessage(ctx, input); err != nil {
			return err
		}
	}
}

func isExit(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}

// executeCommand parses and runs a slash command.
func (r *REPL) executeCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	name := strings.ToLower(parts[0])
	command, exists := r.commands.Get(name)
	if !exists {
		return fmt.Errorf("unknown command: %s. Type '/help' for available commands", parts[0])
	}
	return command.Run(ctx, parts[1:])
}

// showConversation prints the header, or the full transcript when resuming
// a conversation that already has messages.
func (r *REPL) showConversation(ctx context.Context) error {
	msgs, err := r.repo.GetMessages(ctx, r.conv.ID)
	if err != nil {
		return fmt.Errorf("failed to load conversation %s: %w", r.conv.ID, err)
	}
	if len(msgs) == 0 {
		r.logger.OutputLine("%s", formatting.HeaderBox(r.conv.Title, string(r.conv.Mode)))
		return nil
	}
	return formatting.WriteTranscript(r.logger.Writer(), formatting.FormatTable, formatting.NewTranscriptView(*r.conv, msgs), r.markdown)
}

// sendMessage runs one turn and streams the reply as it arrives. Ctrl+C
// stops the reply without ending the session. Only errors that end the
// session are returned.
func (r *REPL) sendMessage(ctx context.Context, input string) error {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	w := r.logger.Writer()
	sp := formatting.NewSpinner(w, "Thinking...", r.spinner)
	sp.Start()

	started := false
	onChunk := func(chunk string) {
		if !started {
			sp.Stop()
			started = true
			r.logger.Output("%s ", r.logger.Label(formatting.SpeakerLabel(string(conversation.RoleAssistant))+":", text.Colors{text.FgHiGreen, text.Bold}))
		}
		r.logger.Output("%s", chunk)
	}

	result, err := r.controller.RunTurn(turnCtx, r.conv, input, onChunk)
	if started {
		r.logger.OutputLine("")
	} else {
		sp.Stop()
	}

	if err != nil {
		return r.handleTurnError(err)
	}

	if result.Titled {
		r.updatePrompt()
	}
	switch result.FinishReason {
	case gateway.FinishLength:
		r.logger.Warn("The reply was cut off at the model's length limit.")
	case gateway.FinishContentFilter:
		r.logger.Warn("The reply was stopped by the provider's content filter.")
	}
	r.logger.OutputLine("")
	return nil
}

// handleTurnError reports a failed turn. Quota, storage and stream failures
// end the turn only; rejected API keys and logouts end the session.
func (r *REPL) handleTurnError(err error) error {
	var (
		gwErr      *gateway.Error
		validation *chat.ValidationError
		storage    *chat.StorageError
	)

	switch {
	case errors.Is(err, chat.ErrSessionEnded):
		if r.isLoggedOut() {
			return ErrLoggedOut
		}
		return err
	case errors.As(err, &validation):
		r.logger.Warn("%s", validation.Err)
	case errors.As(err, &storage):
		r.logger.OutputLine("%s", formatting.ErrorBox("Could not save the conversation", storage.Error()))
	case errors.Is(err, gateway.ErrQuotaExceeded) && errors.As(err, &gwErr):
		r.logger.OutputLine("%s", formatting.QuotaBox(gwErr.Provider, gwErr.RetryAfter))
	case errors.Is(err, gateway.ErrUnauthorized):
		return err
	case gateway.KindOf(err) == gateway.KindCanceled:
		if r.isLoggedOut() {
			return ErrLoggedOut
		}
		r.logger.Info("Reply interrupted.")
	default:
		r.logger.OutputLine("%s", formatting.ErrorBox("Something went wrong", cli.UserMessage(err)))
	}
	r.logger.OutputLine("")
	return nil
}

// onCredentialChange ends the session when another process logged out.
func (r *REPL) onCredentialChange(kind credstore.ChangeKind) {
	if kind != credstore.Removed {
		r.logger.Debug("Credential replaced by another process")
		return
	}

	r.mu.Lock()
	if r.loggedOut {
		r.mu.Unlock()
		return
	}
	r.loggedOut = true
	cancel := r.cancel
	r.mu.Unlock()

	r.logger.OutputLine("")
	r.logger.Warn("You were logged out. Ending the chat session.")
	r.controller.End()
	if cancel != nil {
		cancel()
	}
	if r.reader != nil {
		_ = r.reader.Close()
	}
}

func (r *REPL) isLoggedOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loggedOut
}
