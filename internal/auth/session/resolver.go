package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultMirrorTTL bounds how long a remotely resolved session is trusted
// locally when the provider does not report an expiry.
const DefaultMirrorTTL = time.Hour

// StoreResolver resolves tokens against the local session mirror only.
type StoreResolver struct {
	store Store
	now   func() time.Time
}

// NewStoreResolver creates a resolver backed by store.
func NewStoreResolver(store Store) *StoreResolver {
	return &StoreResolver{store: store, now: time.Now}
}

// ResolveUser implements Resolver.
func (r *StoreResolver) ResolveUser(ctx context.Context, bearerToken string) (*User, error) {
	if bearerToken == "" {
		return nil, nil
	}
	return r.store.FindUserBySessionToken(ctx, bearerToken, r.now())
}

// CachingResolver consults the local store first and the identity provider on
// a miss, mirroring remote hits so later lookups and conversation rows can
// reference the user. Concurrent lookups for one token share a single
// remote call.
type CachingResolver struct {
	store  Store
	remote Looker
	now    func() time.Time
	group  singleflight.Group
}

// CachingOption configures a CachingResolver.
type CachingOption func(*CachingResolver)

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) CachingOption {
	return func(r *CachingResolver) {
		r.now = now
	}
}

// NewCachingResolver combines a local store with a remote lookup.
func NewCachingResolver(store Store, remote Looker, opts ...CachingOption) *CachingResolver {
	r := &CachingResolver{store: store, remote: remote, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveUser implements Resolver.
func (r *CachingResolver) ResolveUser(ctx context.Context, bearerToken string) (*User, error) {
	if bearerToken == "" {
		return nil, nil
	}

	user, err := r.store.FindUserBySessionToken(ctx, bearerToken, r.now())
	if err != nil {
		logging.Warn("SessionResolver", "Local session lookup failed, asking the provider: %v", err)
	} else if user != nil {
		return user, nil
	}

	v, err, shared := r.group.Do(tokenKey(bearerToken), func() (interface{}, error) {
		return r.resolveRemote(ctx, bearerToken)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.Debug("SessionResolver", "Shared an in-flight session lookup")
	}

	user, _ = v.(*User)
	return user, nil
}

func (r *CachingResolver) resolveRemote(ctx context.Context, bearerToken string) (*User, error) {
	l, err := r.remote.LookupSession(ctx, bearerToken)
	if err != nil {
		return nil, err
	}
	if l == nil || l.User == nil {
		return nil, nil
	}

	sess := Session{Token: bearerToken, UserID: l.User.ID}
	if l.Session != nil {
		sess.ID = l.Session.ID
		sess.ExpiresAt = l.Session.ExpiresAt
	}
	if sess.ID == "" {
		sess.ID = "token-" + tokenKey(bearerToken)
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = r.now().Add(DefaultMirrorTTL)
	}

	if err := r.store.SaveSession(ctx, *l.User, sess); err != nil {
		return nil, fmt.Errorf("mirror session for user %s: %w", l.User.ID, err)
	}

	logging.Debug("SessionResolver", "Mirrored session for user %s until %s", l.User.ID, sess.ExpiresAt.Format(time.RFC3339))
	return l.User, nil
}

// Forget drops the local mirror of a token, e.g. on logout.
func (r *CachingResolver) Forget(ctx context.Context, bearerToken string) error {
	return r.store.DeleteSessionByToken(ctx, bearerToken)
}

// tokenKey derives a non-reversible identifier for a token so raw token
// values never end up in keys or logs.
func tokenKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:16])
}
