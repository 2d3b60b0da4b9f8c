// Package conversation defines the conversation and message model and the
// repository port used to persist them.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Mode is the kind of session a conversation was started in.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeTool  Mode = "tool"
	ModeAgent Mode = "agent"
)

// Modes lists every mode in the order offered to the user.
var Modes = []Mode{ModeChat, ModeTool, ModeAgent}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (expected chat, tool or agent)", s)
}

// DefaultTitle is the title a conversation carries until its first message.
func DefaultTitle(mode Mode) string {
	return fmt.Sprintf("New %s conversation", mode)
}

// Conversation belongs to exactly one user.
type Conversation struct {
	ID        string
	UserID    string
	Mode      Mode
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is an append-only entry of a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Content        string
	CreatedAt      time.Time
}

var (
	// ErrNotFound indicates the conversation does not exist or belongs to another user.
	ErrNotFound = errors.New("conversation not found")
	// ErrInvalidRole indicates a message with a role outside user/assistant/system.
	ErrInvalidRole = errors.New("invalid message role")
)

// Repository persists conversations and their ordered messages.
//
// GetConversation returns nil, nil when no conversation with that id is owned
// by userID. ListUserConversations orders by most recently updated first.
// GetMessages orders by creation time ascending, ties broken by insertion order.
// AddMessage bumps the conversation's UpdatedAt. DeleteConversation removes
// the messages with it and returns ErrNotFound when nothing was deleted.
type Repository interface {
	CreateConversation(ctx context.Context, userID string, mode Mode, title string) (*Conversation, error)
	GetConversation(ctx context.Context, userID, id string) (*Conversation, error)
	ListUserConversations(ctx context.Context, userID string) ([]Conversation, error)
	AddMessage(ctx context.Context, conversationID string, role Role, content string) (*Message, error)
	GetMessages(ctx context.Context, conversationID string) ([]Message, error)
	UpdateTitle(ctx context.Context, conversationID, title string) error
	DeleteConversation(ctx context.Context, userID, id string) error
}

// MessageCounter is implemented by repositories that can count messages
// without loading them.
type MessageCounter interface {
	CountMessages(ctx context.Context, conversationID string) (int, error)
}
