package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/LuckySilver0021/atom/internal/auth/device"
	"github.com/LuckySilver0021/atom/internal/chat"
	"github.com/LuckySilver0021/atom/internal/gateway"
)

// Exit codes returned by the atom binary.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no valid credential is available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the device authorization flow failed.
	ExitCodeAuthFailed = 3
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the identity provider or model API could not be reached.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

func (e *ConnectionError) Error() string {
	switch e.Type {
	case ConnectionErrorTLS:
		return fmt.Sprintf("TLS certificate verification failed for %s: %v", e.Endpoint, e.Reason)
	case ConnectionErrorDNS:
		return fmt.Sprintf("Could not resolve %s: %v", e.Endpoint, e.Reason)
	case ConnectionErrorTimeout:
		return fmt.Sprintf("Timed out connecting to %s", e.Endpoint)
	case ConnectionErrorNetwork:
		return fmt.Sprintf("Connection failed to %s. Is the server running?", e.Endpoint)
	default:
		return fmt.Sprintf("Could not reach %s: %v", e.Endpoint, e.Reason)
	}
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	ce := &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		ce.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		ce.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		ce.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		ce.Type = ConnectionErrorNetwork
	}
	return ce
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// AuthRequiredError indicates no credential is stored.
type AuthRequiredError struct{}

func (e *AuthRequiredError) Error() string {
	return "You are not logged in. Run: atom login"
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the stored credential has expired, or the
// identity provider no longer recognizes it.
type AuthExpiredError struct {
	// ExpiredAt is zero when the provider rejected the session.
	ExpiredAt time.Time
}

func (e *AuthExpiredError) Error() string {
	if e.ExpiredAt.IsZero() {
		return "Your session is no longer valid. Run: atom login"
	}
	return fmt.Sprintf("Your session expired at %s. Run: atom login", e.ExpiredAt.Local().Format(time.RFC1123))
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates the device authorization flow failed.
type AuthFailedError struct {
	// Reason is the underlying error.
	Reason error
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("Authentication failed: %s", authFailureReason(e.Reason))
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, device.ErrAccessDenied):
		return "access was denied in the browser"
	case errors.Is(err, device.ErrExpiredToken):
		return "the code expired before it was approved, please try again"
	case errors.Is(err, device.ErrInvalidClient):
		return "the client id is not registered with the server"
	case err == nil:
		return "unknown error"
	default:
		return err.Error()
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *AuthRequiredError
	var authExpired *AuthExpiredError
	var authFailed *AuthFailedError
	switch {
	case errors.As(err, &authRequired), errors.As(err, &authExpired):
		return ExitCodeAuthRequired
	case errors.As(err, &authFailed):
		return ExitCodeAuthFailed
	default:
		return ExitCodeError
	}
}

// UserMessage returns a one-line explanation of err suitable for the terminal.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		authRequired *AuthRequiredError
		authExpired  *AuthExpiredError
		authFailed   *AuthFailedError
		connErr      *ConnectionError
		transient    *device.TransientProviderError
		gwErr        *gateway.Error
		validation   *chat.ValidationError
	)

	switch {
	case errors.As(err, &authRequired):
		return authRequired.Error()
	case errors.As(err, &authExpired):
		return authExpired.Error()
	case errors.As(err, &authFailed):
		return authFailed.Error()
	case errors.As(err, &connErr):
		return connErr.Error()
	case errors.As(err, &transient):
		return fmt.Sprintf("The authentication server is unavailable (%d attempts). Please try again later.", transient.Attempts)
	case errors.As(err, &gwErr):
		return gatewayMessage(gwErr)
	case errors.As(err, &validation):
		return validation.Err.Error()
	}

	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

func gatewayMessage(e *gateway.Error) string {
	switch e.Kind {
	case gateway.KindQuota:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("The %s quota was exceeded. Retry in %s.", e.Provider, e.RetryAfter.Round(time.Second))
		}
		return fmt.Sprintf("The %s quota was exceeded. Please retry shortly.", e.Provider)
	case gateway.KindAuth:
		return fmt.Sprintf("The %s API key was rejected. Check your configuration.", e.Provider)
	case gateway.KindCanceled:
		return "Request canceled."
	case gateway.KindTransport:
		return fmt.Sprintf("Could not reach %s. Check your connection and try again.", e.Provider)
	default:
		return e.Error()
	}
}
