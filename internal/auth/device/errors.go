package device

import (
	"errors"
	"fmt"
)

// OAuth error codes returned by the token and device endpoints.
const (
	CodeAuthorizationPending = "authorization_pending"
	CodeSlowDown             = "slow_down"
	CodeAccessDenied         = "access_denied"
	CodeExpiredToken         = "expired_token"
	CodeInvalidClient        = "invalid_client"
	CodeInvalidGrant         = "invalid_grant"
)

var (
	// ErrAccessDenied matches a TerminalAuthError for a user who declined.
	ErrAccessDenied = errors.New("access denied")
	// ErrExpiredToken matches a TerminalAuthError for an expired device code.
	ErrExpiredToken = errors.New("device code expired")
	// ErrInvalidClient matches a TerminalAuthError for a rejected client id.
	ErrInvalidClient = errors.New("invalid client")
)

// TerminalAuthError is a failure that must not be retried: the user denied
// access, the device code expired, or the provider rejected the client.
type TerminalAuthError struct {
	Code        string
	Description string
}

func (e *TerminalAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// Is lets callers test with errors.Is(err, ErrAccessDenied) and friends.
func (e *TerminalAuthError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.Code == CodeAccessDenied
	case ErrExpiredToken:
		return e.Code == CodeExpiredToken
	case ErrInvalidClient:
		return e.Code == CodeInvalidClient
	}
	return false
}

// TransientProviderError means the provider could not be reached or answered
// with a server error, after the allowed number of attempts.
type TransientProviderError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransientProviderError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("identity provider unavailable at %s after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("identity provider unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *TransientProviderError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err ends the login for good.
func IsTerminal(err error) bool {
	var te *TerminalAuthError
	return errors.As(err, &te)
}
