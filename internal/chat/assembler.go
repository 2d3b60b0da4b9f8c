package chat

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/sync/errgroup"

	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultContextMessages is how many messages of the previous conversation
// are carried over.
const DefaultContextMessages = 6

// DefaultSummaryTemplate renders the carry-over system message. It receives
// a SummaryData value.
const DefaultSummaryTemplate = `You are a helpful AI assistant. The user has had previous conversations with you. Here's a summary of your last interaction:

Conversation: "{{ .Title }}"
Relevant context from previous chat:
{{ range $i, $m := .Messages }}{{ if $i }}
{{ end }}{{ $m.Speaker }}: {{ $m.Content }}{{ end }}

Use this context to remember details about the user and provide personalized responses.`

// SummaryData is the input of the summary template.
type SummaryData struct {
	Title    string
	Mode     string
	Messages []SummaryLine
}

// SummaryLine is one carried-over message.
type SummaryLine struct {
	// Speaker is "User" for user messages and "Assistant" otherwise.
	Speaker string
	Role    string
	Content string
}

// ContextAssembler builds the message list sent to the model for a turn.
type ContextAssembler interface {
	AssembleContext(ctx context.Context, userID, currentConversationID string) ([]conversation.Message, error)
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithContextMessages sets how many previous-conversation messages are
// carried over. Zero or less disables the carry-over.
func WithContextMessages(n int) AssemblerOption {
	return func(a *Assembler) {
		a.limit = n
	}
}

// WithSummaryTemplate replaces DefaultSummaryTemplate. An empty text keeps
// the default.
func WithSummaryTemplate(text string) AssemblerOption {
	return func(a *Assembler) {
		if text != "" {
			a.templateText = text
		}
	}
}

// Assembler implements ContextAssembler over a conversation.Repository.
type Assembler struct {
	repo         conversation.Repository
	limit        int
	templateText string
	tmpl         *template.Template
}

// NewAssembler parses the summary template and returns an Assembler.
func NewAssembler(repo conversation.Repository, opts ...AssemblerOption) (*Assembler, error) {
	a := &Assembler{
		repo:         repo,
		limit:        DefaultContextMessages,
		templateText: DefaultSummaryTemplate,
	}
	for _, opt := range opts {
		opt(a)
	}

	tmpl, err := template.New("summary").Funcs(sprig.TxtFuncMap()).Parse(a.templateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary template: %w", err)
	}
	a.tmpl = tmpl
	return a, nil
}

// AssembleContext returns the prompt for a turn of currentConversationID:
// zero or one system message summarizing the user's previous conversation,
// followed by every message of the current conversation in creation order.
//
// The previous conversation is the most recently updated conversation of
// the user, other than the current one, taken from a single listing.
func (a *Assembler) AssembleContext(ctx context.Context, userID, currentConversationID string) ([]conversation.Message, error) {
	conversations, err := a.repo.ListUserConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var previous *conversation.Conversation
	if a.limit > 0 {
		for i := range conversations {
			if conversations[i].ID != currentConversationID {
				previous = &conversations[i]
				break
			}
		}
	}

	var previousMessages, currentMessages []conversation.Message

	g, gctx := errgroup.WithContext(ctx)
	if previous != nil {
		g.Go(func() error {
			msgs, err := a.repo.GetMessages(gctx, previous.ID)
			if err != nil {
				return fmt.Errorf("failed to load previous conversation %s: %w", previous.ID, err)
			}
			previousMessages = msgs
			return nil
		})
	}
	if currentConversationID != "" {
		g.Go(func() error {
			msgs, err := a.repo.GetMessages(gctx, currentConversationID)
			if err != nil {
				return fmt.Errorf("failed to load conversation %s: %w", currentConversationID, err)
			}
			currentMessages = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]conversation.Message, 0, len(currentMessages)+1)
	if len(previousMessages) > 0 {
		summary, err := a.renderSummary(previous, previousMessages)
		if err != nil {
			return nil, err
		}
		out = append(out, conversation.Message{
			ConversationID: currentConversationID,
			Role:           conversation.RoleSystem,
			Content:        summary,
		})
		logging.Debug("Chat", "Carrying over %d messages from conversation %s",
			min(len(previousMessages), a.limit), previous.ID)
	}
	out = append(out, currentMessages...)
	return out, nil
}

func (a *Assembler) renderSummary(prev *conversation.Conversation, msgs []conversation.Message) (string, error) {
	if len(msgs) > a.limit {
		msgs = msgs[len(msgs)-a.limit:]
	}

	data := SummaryData{
		Title:    prev.Title,
		Mode:     string(prev.Mode),
		Messages: make([]SummaryLine, 0, len(msgs)),
	}
	for _, m := range msgs {
		speaker := "Assistant"
		if m.Role == conversation.RoleUser {
			speaker = "User"
		}
		data.Messages = append(data.Messages, SummaryLine{
			Speaker: speaker,
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}
