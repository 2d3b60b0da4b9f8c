package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LuckySilver0021/atom/internal/conversation"
)

// Compile-time interface satisfaction checks.
var (
	_ conversation.Repository     = (*ConversationRepo)(nil)
	_ conversation.MessageCounter = (*ConversationRepo)(nil)
)

// ConversationRepo is the SQLite implementation of conversation.Repository.
type ConversationRepo struct {
	db  *DB
	now func() time.Time
}

// RepoOption configures a repository.
type RepoOption func(*ConversationRepo)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) RepoOption {
	return func(r *ConversationRepo) {
		r.now = now
	}
}

// NewConversationRepo creates a new ConversationRepo backed by the given DB.
func NewConversationRepo(db *DB, opts ...RepoOption) *ConversationRepo {
	r := &ConversationRepo{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateConversation inserts a new conversation owned by userID.
func (r *ConversationRepo) CreateConversation(ctx context.Context, userID string, mode conversation.Mode, title string) (*conversation.Conversation, error) {
	const query = `INSERT INTO conversations (id, user_id, mode, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

	now := r.now().UTC()
	conv := &conversation.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ts := formatTime(now)
	if _, err := r.db.Writer.ExecContext(ctx, query, conv.ID, userID, string(mode), title, ts, ts); err != nil {
		return nil, fmt.Errorf("create conversation for user %s: %w", userID, err)
	}

	return conv, nil
}

// GetConversation returns the conversation if it exists and is owned by
// userID; nil, nil otherwise.
func (r *ConversationRepo) GetConversation(ctx context.Context, userID, id string) (*conversation.Conversation, error) {
	const query = `SELECT id, user_id, mode, title, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`

	conv, err := scanConversation(r.db.Reader.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	return conv, nil
}

// ListUserConversations returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListUserConversations(ctx context.Context, userID string) ([]conversation.Conversation, error) {
	const query = `SELECT id, user_id, mode, title, created_at, updated_at FROM conversations
		WHERE user_id = ? ORDER BY updated_at DESC, seq DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations for user %s: %w", userID, err)
	}
	defer rows.Close()

	var convs []conversation.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, nil
}

// AddMessage appends a message and bumps the conversation's updated_at in
// one transaction.
func (r *ConversationRepo) AddMessage(ctx context.Context, conversationID string, role conversation.Role, content string) (*conversation.Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("add message with role %q: %w", role, conversation.ErrInvalidRole)
	}

	const insert = `INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	const touch = `UPDATE conversations SET updated_at = ? WHERE id = ?`

	now := r.now().UTC()
	msg := &conversation.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := formatTime(now)
	result, err := tx.ExecContext(ctx, touch, ts, conversationID)
	if err != nil {
		return nil, fmt.Errorf("touch conversation %s: %w", conversationID, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("add message to %s: %w", conversationID, conversation.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, insert, msg.ID, conversationID, string(role), content, ts); err != nil {
		return nil, fmt.Errorf("insert message into %s: %w", conversationID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}

	return msg, nil
}

// GetMessages returns all messages of a conversation in creation order.
func (r *ConversationRepo) GetMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	const query = `SELECT id, conversation_id, role, content, created_at FROM messages
		WHERE conversation_id = ? ORDER BY created_at ASC, seq ASC`

	rows, err := r.db.Reader.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get messages of %s: %w", conversationID, err)
	}
	defer rows.Close()

	var msgs []conversation.Message
	for rows.Next() {
		var (
			m         conversation.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = conversation.Role(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return msgs, nil
}

// CountMessages returns the number of messages in a conversation.
func (r *ConversationRepo) CountMessages(ctx context.Context, conversationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`

	var n int
	if err := r.db.Writer.QueryRowContext(ctx, query, conversationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages of %s: %w", conversationID, err)
	}
	return n, nil
}

// UpdateTitle replaces the conversation title. updated_at is left alone so
// renaming does not reorder the list.
func (r *ConversationRepo) UpdateTitle(ctx context.Context, conversationID, title string) error {
	const query = `UPDATE conversations SET title = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, title, conversationID)
	if err != nil {
		return fmt.Errorf("update title of %s: %w", conversationID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update title of %s: %w", conversationID, conversation.ErrNotFound)
	}

	return nil
}

// DeleteConversation removes a conversation owned by userID. Messages are
// removed by the foreign key cascade.
func (r *ConversationRepo) DeleteConversation(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM conversations WHERE id = ? AND user_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete conversation %s: %w", id, conversation.ErrNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (*conversation.Conversation, error) {
	var (
		conv                 conversation.Conversation
		mode                 string
		createdAt, updatedAt string
	)

	if err := s.Scan(&conv.ID, &conv.UserID, &mode, &conv.Title, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	conv.Mode = conversation.Mode(mode)

	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &conv, nil
}
