package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LuckySilver0021/atom/internal/auth/session"
)

// Compile-time interface satisfaction check.
var _ session.Store = (*UserRepo)(nil)

// UserRepo mirrors identity-provider users and sessions locally.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindUserBySessionToken returns the owner of a session that is still live at now.
func (r *UserRepo) FindUserBySessionToken(ctx context.Context, token string, now time.Time) (*session.User, error) {
	const query = `SELECT u.id, u.name, u.email, u.image FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`

	var u session.User
	err := r.db.Reader.QueryRowContext(ctx, query, token, formatTime(now)).Scan(&u.ID, &u.Name, &u.Email, &u.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by session token: %w", err)
	}

	return &u, nil
}

// SaveSession upserts the user and the session in one transaction.
func (r *UserRepo) SaveSession(ctx context.Context, user session.User, sess session.Session) error {
	const upsertUser = `INSERT INTO users (id, name, email, image, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, image = excluded.image, updated_at = excluded.updated_at`
	const upsertSession = `INSERT INTO sessions (id, token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_id = excluded.user_id, expires_at = excluded.expires_at`

	if user.ID == "" {
		return errors.New("save session: user id is required")
	}

	now := formatTime(time.Now())

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertUser, user.ID, user.Name, user.Email, user.Image, now, now); err != nil {
		return fmt.Errorf("upsert user %s: %w", user.ID, err)
	}

	if sess.Token != "" {
		// A token can only belong to one mirrored session.
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE token = ? AND id <> ?`, sess.Token, sess.ID); err != nil {
			return fmt.Errorf("replace session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsertSession, sess.ID, sess.Token, user.ID, formatTime(sess.ExpiresAt), now); err != nil {
			return fmt.Errorf("upsert session %s: %w", sess.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// DeleteSessionByToken removes the mirrored session for token, if any.
func (r *UserRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetUser returns a mirrored user by id, or nil, nil.
func (r *UserRepo) GetUser(ctx context.Context, id string) (*session.User, error) {
	const query = `SELECT id, name, email, image FROM users WHERE id = ?`

	var u session.User
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}
