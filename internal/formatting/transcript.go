package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LuckySilver0021/atom/internal/conversation"
)

// MessageView is the printable form of a message.
type MessageView struct {
	ID        string    `json:"id" yaml:"id"`
	Role      string    `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// TranscriptView is a conversation together with its messages.
type TranscriptView struct {
	Conversation ConversationView `json:"conversation" yaml:"conversation"`
	Messages     []MessageView    `json:"messages" yaml:"messages"`
}

// NewTranscriptView converts a conversation and its ordered messages.
func NewTranscriptView(c conversation.Conversation, msgs []conversation.Message) TranscriptView {
	view := TranscriptView{
		Conversation: NewConversationView(c, len(msgs)),
		Messages:     make([]MessageView, 0, len(msgs)),
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, MessageView{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return view
}

// SpeakerLabel is the name shown in front of a message of role.
func SpeakerLabel(role string) string {
	switch conversation.Role(role) {
	case conversation.RoleUser:
		return "You"
	case conversation.RoleAssistant:
		return "Atom"
	default:
		return "System"
	}
}

func colorForRole(role string) text.Colors {
	switch conversation.Role(role) {
	case conversation.RoleUser:
		return text.Colors{text.FgHiCyan, text.Bold}
	case conversation.RoleAssistant:
		return text.Colors{text.FgHiGreen, text.Bold}
	default:
		return text.Colors{text.FgYellow}
	}
}

// WriteTranscript prints a conversation's messages in order. Assistant
// messages go through md when it is not nil and the format is FormatTable.
func WriteTranscript(w io.Writer, format OutputFormat, view TranscriptView, md *MarkdownRenderer) error {
	if view.Messages == nil {
		view.Messages = []MessageView{}
	}
	if handled, err := writeStructured(w, format, view); handled {
		return err
	}

	c := view.Conversation
	if format == FormatPlain {
		fmt.Fprintf(w, "# %s (%s, %s)\n\n", c.Title, c.Mode, c.UpdatedAt.Local().Format(TimeLayout))
		for _, m := range view.Messages {
			fmt.Fprintf(w, "%s: %s\n\n", SpeakerLabel(m.Role), m.Content)
		}
		return nil
	}

	fmt.Fprintln(w, HeaderBox(c.Title, c.Mode))
	if len(view.Messages) == 0 {
		_, err := fmt.Fprintln(w, text.FgYellow.Sprint("No messages yet"))
		return err
	}

	for _, m := range view.Messages {
		label := colorForRole(m.Role).Sprint(SpeakerLabel(m.Role) + ":")
		body := m.Content
		if md != nil && m.Role == string(conversation.RoleAssistant) {
			body = strings.TrimRight(md.Render(body), "\n")
		}
		fmt.Fprintf(w, "%s %s\n", label, text.FgHiBlack.Sprint(m.CreatedAt.Local().Format(TimeLayout)))
		fmt.Fprintf(w, "%s\n\n", body)
	}
	return nil
}
