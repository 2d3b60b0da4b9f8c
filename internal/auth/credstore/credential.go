package credstore

import (
	"time"
)

// ExpiryMargin is how long before its real expiry a credential is already
// treated as expired, so a request never starts with a token that dies mid-flight.
const ExpiryMargin = 5 * time.Minute

// Credential is the access credential obtained from the device flow.
// It is written and read as a whole; there is never a partial record.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds reported by the token endpoint.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// CreatedAt is the issue time in Unix milliseconds.
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt, when set, takes precedence over CreatedAt+ExpiresIn.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expiry returns the absolute expiry and whether the credential expires at all.
func (c *Credential) Expiry() (time.Time, bool) {
	if c.ExpiresAt != nil && !c.ExpiresAt.IsZero() {
		return *c.ExpiresAt, true
	}
	if c.ExpiresIn > 0 {
		return time.UnixMilli(c.CreatedAt).Add(time.Duration(c.ExpiresIn) * time.Second), true
	}
	return time.Time{}, false
}

// IsExpired reports whether cred must be treated as invalid at now:
// nil credentials are expired, credentials without any expiry never are,
// and everything else is expired once less than ExpiryMargin remains.
func IsExpired(cred *Credential, now time.Time) bool {
	if cred == nil || cred.AccessToken == "" {
		return true
	}
	expiry, ok := cred.Expiry()
	if !ok {
		return false
	}
	return expiry.Sub(now) < ExpiryMargin
}

// valid reports whether the record carries a usable token.
func (c *Credential) valid() bool {
	return c != nil && c.AccessToken != ""
}
