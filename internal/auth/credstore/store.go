package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

const subsystem = "CredentialStore"

// Store persists a single credential as a JSON file.
//
// SECURITY: the file is created 0600 inside a 0700 directory, writes replace
// the file atomically, and token values are never logged.
type Store struct {
	mu   sync.RWMutex
	path string
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used by IsExpired and Save.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store for the credential file at path.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the credential file location.
func (s *Store) Path() string {
	return s.path
}

// Save atomically replaces the stored credential. Readers observe either the
// previous file or the new one. A zero CreatedAt is stamped with the current time.
func (s *Store) Save(cred *Credential) error {
	if !cred.valid() {
		return errors.New("refusing to store a credential without an access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *cred
	if stored.CreatedAt == 0 {
		stored.CreatedAt = s.now().UnixMilli()
	}

	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		logging.Audit(subsystem, "token_store_failed", "path", s.path, "error", err.Error())
		return err
	}

	logging.Audit(subsystem, "token_stored",
		"path", s.path,
		"scope", stored.Scope,
		"has_refresh_token", stored.RefreshToken != "",
	)
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &CredentialIOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return &CredentialIOError{Op: "create", Path: dir, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &CredentialIOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &CredentialIOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &CredentialIOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return &CredentialIOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &CredentialIOError{Op: "rename", Path: s.path, Err: err}
	}
	committed = true
	return nil
}

// Load returns the stored credential, or nil when none exists. A file that
// cannot be parsed is logged and reported as absent.
func (s *Store) Load() (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- path comes from configuration, not remote input
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &CredentialIOError{Op: "read", Path: s.path, Err: err}
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		logging.Warn(subsystem, "Ignoring unreadable credential file %s: %v", s.path, err)
		return nil, nil
	}
	if !cred.valid() {
		logging.Warn(subsystem, "Ignoring credential file %s without an access token", s.path)
		return nil, nil
	}

	return &cred, nil
}

// LoadValid is Load followed by an expiry check. Expired credentials are
// returned together with ok=false so callers can tell "expired" from "absent".
func (s *Store) LoadValid() (cred *Credential, ok bool, err error) {
	cred, err = s.Load()
	if err != nil || cred == nil {
		return cred, false, err
	}
	return cred, !IsExpired(cred, s.now()), nil
}

// IsExpired applies the store's clock to IsExpired.
func (s *Store) IsExpired(cred *Credential) bool {
	return IsExpired(cred, s.now())
}

// Clear removes the stored credential. It reports whether a file existed.
func (s *Store) Clear() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		logging.Audit(subsystem, "token_clear_failed", "path", s.path, "error", err.Error())
		return false, &CredentialIOError{Op: "remove", Path: s.path, Err: err}
	}

	logging.Audit(subsystem, "token_cleared", "path", s.path)
	return true, nil
}
