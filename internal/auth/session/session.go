// Package session maps a bearer credential to the user it belongs to.
package session

import (
	"context"
	"time"
)

// User is the identity behind a session. It is resolved, never modified, by atom.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// DisplayName returns the name, falling back to the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session is an identity-provider session as mirrored locally.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Resolver maps a bearer token to its user. ResolveUser returns nil, nil when
// no live session matches the token.
type Resolver interface {
	ResolveUser(ctx context.Context, bearerToken string) (*User, error)
}

// Store is the local mirror of users and sessions.
type Store interface {
	// FindUserBySessionToken returns the user of the session with token that
	// is still live at now, or nil, nil.
	FindUserBySessionToken(ctx context.Context, token string, now time.Time) (*User, error)
	// SaveSession upserts the user and the session.
	SaveSession(ctx context.Context, user User, sess Session) error
	// DeleteSessionByToken removes a mirrored session; used on logout.
	DeleteSessionByToken(ctx context.Context, token string) error
}
