package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuckySilver0021/atom/internal/auth/session"
)

func TestUserRepo_SaveAndFindSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	user := session.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	sess := session.Session{ID: "s1", Token: "tok", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.SaveSession(ctx, user, sess))

	got, err := repo.FindUserBySessionToken(ctx, "tok", now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)

	// Expired at lookup time.
	got, err = repo.FindUserBySessionToken(ctx, "tok", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.FindUserBySessionToken(ctx, "unknown", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_SaveSessionUpdatesUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, repo.SaveSession(ctx, session.User{ID: "u1", Name: "Old"}, session.Session{ID: "s1", Token: "t1", ExpiresAt: exp}))
	require.NoError(t, repo.SaveSession(ctx, session.User{ID: "u1", Name: "New"}, session.Session{ID: "s2", Token: "t1", ExpiresAt: exp}))

	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "New", u.Name)

	var n int
	require.NoError(t, db.Writer.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE token = 't1'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestUserRepo_DeleteSessionByToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.SaveSession(ctx, session.User{ID: "u1"}, session.Session{ID: "s1", Token: "tok", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.DeleteSessionByToken(ctx, "tok"))

	got, err := repo.FindUserBySessionToken(ctx, "tok", now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_SaveSessionRequiresUserID(t *testing.T) {
	repo := NewUserRepo(setupTestDB(t))
	assert.Error(t, repo.SaveSession(context.Background(), session.User{}, session.Session{}))
}
