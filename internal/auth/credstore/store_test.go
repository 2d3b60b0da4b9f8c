package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials", "token.json")
	return New(path, WithClock(func() time.Time { return now }))
}

func TestStore_SaveAndLoad(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(t, now)

	cred := &Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Scope:        "openid profile email",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
	require.NoError(t, store.Save(cred))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.Equal(t, int64(3600), loaded.ExpiresIn)
	assert.Equal(t, now.UnixMilli(), loaded.CreatedAt, "zero CreatedAt is stamped on save")
	assert.Zero(t, cred.CreatedAt, "caller's credential is not mutated")
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permissions")
	}
	store := newTestStore(t, time.Now())
	require.NoError(t, store.Save(&Credential{AccessToken: "a"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestStore_SaveReplacesWithoutLeftovers(t *testing.T) {
	store := newTestStore(t, time.Now())
	require.NoError(t, store.Save(&Credential{AccessToken: "first"}))
	require.NoError(t, store.Save(&Credential{AccessToken: "second"}))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.AccessToken)

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are renamed away")
}

func TestStore_SaveRejectsEmptyToken(t *testing.T) {
	store := newTestStore(t, time.Now())
	assert.Error(t, store.Save(&Credential{}))
	assert.Error(t, store.Save(nil))
}

func TestStore_LoadAbsent(t *testing.T) {
	store := newTestStore(t, time.Now())

	cred, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, cred)
}

func TestStore_LoadCorruptIsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"torn json", `{"access_token": "abc", "created_`},
		{"not json", "hello"},
		{"empty file", ""},
		{"missing token", `{"scope": "openid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, time.Now())
			require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0600))

			cred, err := store.Load()
			assert.NoError(t, err)
			assert.Nil(t, cred)
		})
	}
}

func TestStore_LoadReadsExternalFormat(t *testing.T) {
	store := newTestStore(t, time.Now())
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))

	raw := map[string]any{
		"access_token":  "abc",
		"refresh_token": "def",
		"expires_in":    3600,
		"scope":         "openid",
		"token_type":    "Bearer",
		"created_at":    1700000000000,
		"expires_at":    "2026-01-01T00:00:00Z",
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), data, 0600))

	cred, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, int64(1700000000000), cred.CreatedAt)
	require.NotNil(t, cred.ExpiresAt)
	assert.True(t, cred.ExpiresAt.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t, time.Now())

	existed, err := store.Clear()
	require.NoError(t, err)
	assert.False(t, existed, "nothing to clear")

	require.NoError(t, store.Save(&Credential{AccessToken: "a"}))

	existed, err = store.Clear()
	require.NoError(t, err)
	assert.True(t, existed)

	cred, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestStore_LoadValid(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued.Add(3600*time.Second - 60*time.Second)
	store := newTestStore(t, now)

	require.NoError(t, store.Save(&Credential{
		AccessToken: "a",
		ExpiresIn:   3600,
		CreatedAt:   issued.UnixMilli(),
	}))

	cred, ok, err := store.LoadValid()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.False(t, ok, "one minute left is inside the margin")
}
