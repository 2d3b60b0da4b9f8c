package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuckySilver0021/atom/internal/testing/mock"
)

type memoryStore struct {
	mu       sync.Mutex
	users    map[string]User
	sessions map[string]Session
	findErr  error
	saveErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]User{}, sessions: map[string]Session{}}
}

func (m *memoryStore) FindUserBySessionToken(_ context.Context, token string, now time.Time) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	s, ok := m.sessions[token]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, nil
	}
	u := m.users[s.UserID]
	return &u, nil
}

func (m *memoryStore) SaveSession(_ context.Context, user User, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.users[user.ID] = user
	m.sessions[sess.Token] = sess
	return nil
}

func (m *memoryStore) DeleteSessionByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

type countingLooker struct {
	calls  atomic.Int32
	lookup *Lookup
	err    error
	delay  time.Duration
}

func (c *countingLooker) LookupSession(context.Context, string) (*Lookup, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return c.lookup, c.err
}

func TestAPIResolver(t *testing.T) {
	srv := mock.NewIdPServer(mock.IdPConfig{})
	defer srv.Close()
	srv.AddSession("good-token", "sess-1", mock.IdPUser{ID: "u1", Name: "Ada", Email: "ada@example.com"})

	r := NewAPIResolver(srv.URL, mock.IdPSessionPath, WithHTTPClient(srv.Client()))

	t.Run("live session", func(t *testing.T) {
		l, err := r.LookupSession(context.Background(), "good-token")
		require.NoError(t, err)
		require.NotNil(t, l)
		assert.Equal(t, "Ada", l.User.Name)
		require.NotNil(t, l.Session)
		assert.Equal(t, "sess-1", l.Session.ID)
		assert.True(t, l.Session.ExpiresAt.After(time.Now()))
	})

	t.Run("unknown token yields nil", func(t *testing.T) {
		u, err := r.ResolveUser(context.Background(), "other")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("empty token yields nil", func(t *testing.T) {
		u, err := r.ResolveUser(context.Background(), "")
		assert.NoError(t, err)
		assert.Nil(t, u)
		assert.Equal(t, 2, srv.SessionRequests(), "no request for an empty token")
	})
}

func TestAPIResolver_ServerError(t *testing.T) {
	srv := mock.NewIdPServer(mock.IdPConfig{})
	url := srv.URL
	srv.Close()

	_, err := NewAPIResolver(url, "/api/me", WithHTTPClient(&http.Client{Timeout: time.Second})).ResolveUser(context.Background(), "t")
	assert.Error(t, err)
}

func TestStoreResolver(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.SaveSession(context.Background(), User{ID: "u1", Name: "Ada"},
		Session{ID: "s", Token: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))

	r := NewStoreResolver(store)

	u, err := r.ResolveUser(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ada", u.DisplayName())

	u, err = r.ResolveUser(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestCachingResolver_MirrorsRemoteHit(t *testing.T) {
	store := newMemoryStore()
	expires := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	remote := &countingLooker{lookup: &Lookup{
		User:    &User{ID: "u1", Name: "Ada"},
		Session: &Session{ID: "s1", ExpiresAt: expires},
	}}

	r := NewCachingResolver(store, remote)

	u, err := r.ResolveUser(context.Background(), "tok")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	// Second lookup is served locally.
	u, err = r.ResolveUser(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, int32(1), remote.calls.Load())

	assert.Equal(t, "s1", store.sessions["tok"].ID)
	assert.True(t, expires.Equal(store.sessions["tok"].ExpiresAt))
}

func TestCachingResolver_DefaultsMissingSession(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	remote := &countingLooker{lookup: &Lookup{User: &User{ID: "u1"}}}

	r := NewCachingResolver(store, remote, WithClock(func() time.Time { return now }))
	_, err := r.ResolveUser(context.Background(), "tok")
	require.NoError(t, err)

	sess := store.sessions["tok"]
	assert.NotEmpty(t, sess.ID)
	assert.NotContains(t, sess.ID, "tok", "raw token is not used as id")
	assert.True(t, now.Add(DefaultMirrorTTL).Equal(sess.ExpiresAt))
}

func TestCachingResolver_NoSession(t *testing.T) {
	store := newMemoryStore()
	r := NewCachingResolver(store, &countingLooker{})

	u, err := r.ResolveUser(context.Background(), "tok")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.Empty(t, store.sessions)
}

func TestCachingResolver_Errors(t *testing.T) {
	t.Run("remote error", func(t *testing.T) {
		r := NewCachingResolver(newMemoryStore(), &countingLooker{err: errors.New("boom")})
		_, err := r.ResolveUser(context.Background(), "tok")
		assert.Error(t, err)
	})

	t.Run("mirror failure is reported", func(t *testing.T) {
		store := newMemoryStore()
		store.saveErr = errors.New("disk full")
		r := NewCachingResolver(store, &countingLooker{lookup: &Lookup{User: &User{ID: "u1"}}})
		_, err := r.ResolveUser(context.Background(), "tok")
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("local failure falls through to remote", func(t *testing.T) {
		store := newMemoryStore()
		store.findErr = errors.New("locked")
		r := NewCachingResolver(store, &countingLooker{lookup: &Lookup{User: &User{ID: "u1"}}})
		u, err := r.ResolveUser(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})
}

func TestCachingResolver_DeduplicatesConcurrentLookups(t *testing.T) {
	store := newMemoryStore()
	remote := &countingLooker{
		lookup: &Lookup{User: &User{ID: "u1"}},
		delay:  100 * time.Millisecond,
	}
	r := NewCachingResolver(store, remote)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := r.ResolveUser(context.Background(), "tok")
			assert.NoError(t, err)
			assert.Equal(t, "u1", u.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestCachingResolver_Forget(t *testing.T) {
	store := newMemoryStore()
	remote := &countingLooker{lookup: &Lookup{User: &User{ID: "u1"}}}
	r := NewCachingResolver(store, remote)

	_, err := r.ResolveUser(context.Background(), "tok")
	require.NoError(t, err)
	require.NoError(t, r.Forget(context.Background(), "tok"))
	assert.Empty(t, store.sessions)
}
