package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies gateway failures.
type Kind string

const (
	KindQuota          Kind = "quota"
	KindAuth           Kind = "auth"
	KindInvalidRequest Kind = "invalid_request"
	KindTransport      Kind = "transport"
	KindStream         Kind = "stream"
	KindCanceled       Kind = "canceled"
	KindUnknown        Kind = "unknown"
)

var (
	// ErrQuotaExceeded matches any *Error of KindQuota.
	ErrQuotaExceeded = errors.New("model quota exceeded")
	// ErrUnauthorized matches any *Error of KindAuth.
	ErrUnauthorized = errors.New("model provider rejected the credentials")
)

// Error is returned by every Gateway implementation.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	// Code is the provider's structured error code or status, e.g.
	// RESOURCE_EXHAUSTED or rate_limit_exceeded.
	Code       string
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	switch {
	case e.Message != "":
		fmt.Fprintf(&b, ": %s", e.Message)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind sentinels so callers can use errors.Is(err, ErrQuotaExceeded).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.Kind == KindQuota
	case ErrUnauthorized:
		return e.Kind == KindAuth
	}
	return false
}

// KindOf returns the Kind of err, or KindUnknown when err is not a *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// kindForStatus maps an HTTP status to a Kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindQuota
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case status >= http.StatusInternalServerError:
		return KindTransport
	default:
		return KindUnknown
	}
}

// kindForCode maps structured provider codes (Google RPC statuses and
// OpenAI-style error codes/types) to a Kind. The empty Kind means "no opinion".
func kindForCode(code string) Kind {
	switch strings.ToLower(code) {
	case "resource_exhausted", "rate_limit_exceeded", "insufficient_quota", "tokens_exceeded", "requests_exceeded":
		return KindQuota
	case "unauthenticated", "permission_denied", "invalid_api_key", "authentication_error":
		return KindAuth
	case "invalid_argument", "invalid_request_error", "not_found", "model_not_found", "failed_precondition":
		return KindInvalidRequest
	case "unavailable", "internal", "deadline_exceeded", "server_error", "service_unavailable":
		return KindTransport
	}
	return ""
}

// classify combines the status and structured code; the code wins when it
// has an opinion.
func classify(status int, codes ...string) Kind {
	for _, c := range codes {
		if k := kindForCode(c); k != "" {
			return k
		}
	}
	if status == 0 {
		return KindStream
	}
	return kindForStatus(status)
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if ts, err := http.ParseTime(ra); err == nil {
		if d := ts.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// transportError wraps a failed request, preserving cancellation.
func transportError(ctx context.Context, provider string, err error) *Error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Provider: provider, Kind: KindCanceled, Err: ctxErr}
	}
	return &Error{Provider: provider, Kind: KindTransport, Err: err}
}
