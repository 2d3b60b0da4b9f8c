package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/LuckySilver0021/atom/internal/auth/credstore"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

const (
	// DefaultHTTPTimeout is the default timeout for each request to the provider.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxTransientAttempts is how many consecutive transport or 5xx
	// failures the poll loop tolerates before giving up.
	DefaultMaxTransientAttempts = 3

	// DefaultSessionLifetime applies when the provider omits expires_in.
	DefaultSessionLifetime = 15 * time.Minute

	maxResponseBytes = 1 << 20
	subsystem        = "DeviceAuth"
)

// Config locates the provider's device endpoints.
type Config struct {
	ServerURL      string
	DeviceCodePath string
	TokenPath      string
}

// Client runs the OAuth 2.0 device authorization grant (RFC 8628) against
// a single identity provider.
type Client struct {
	deviceCodeURL string
	tokenURL      string

	httpClient   *http.Client
	now          func() time.Time
	wait         func(ctx context.Context, d time.Duration) error
	observer     Observer
	maxTransient int
}

// ClientOption configures the device client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithClock overrides the time source used for the session deadline.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// WithWaiter replaces the sleep between poll attempts. The function must
// return ctx.Err() when the context ends first.
func WithWaiter(wait func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) {
		c.wait = wait
	}
}

// WithObserver registers a callback for polling transitions.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithMaxTransientAttempts sets the consecutive-failure budget of the poll loop.
func WithMaxTransientAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxTransient = n
		}
	}
}

// NewClient creates a device client for the provider described by cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	base := strings.TrimSuffix(cfg.ServerURL, "/")
	c := &Client{
		deviceCodeURL: base + cfg.DeviceCodePath,
		tokenURL:      base + cfg.TokenPath,
		httpClient:    &http.Client{Timeout: DefaultHTTPTimeout},
		now:           time.Now,
		wait:          sleepContext,
		maxTransient:  DefaultMaxTransientAttempts,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequestDeviceCode starts a device authorization and returns the session the
// user has to confirm. Failures are *TransientProviderError when the provider
// could not be reached and *TerminalAuthError when it rejected the client.
func (c *Client) RequestDeviceCode(ctx context.Context, clientID, scope string) (*Session, error) {
	conf := &oauth2.Config{
		ClientID: clientID,
		Scopes:   strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: c.deviceCodeURL,
			TokenURL:      c.tokenURL,
		},
	}

	logging.Info(subsystem, "Requesting device code from %s", c.deviceCodeURL)

	requested := c.now()
	resp, err := conf.DeviceAuth(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.classifyDeviceAuthError(err)
	}

	if resp.DeviceCode == "" || resp.UserCode == "" {
		return nil, &TransientProviderError{
			Endpoint: c.deviceCodeURL,
			Attempts: 1,
			Err:      errors.New("response is missing device_code or user_code"),
		}
	}

	session := &Session{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		Interval:                time.Duration(resp.Interval) * time.Second,
	}
	if session.Interval <= 0 {
		session.Interval = DefaultInterval
	}

	if resp.Expiry.IsZero() {
		session.ExpiresIn = DefaultSessionLifetime
		session.ExpiresAt = requested.Add(DefaultSessionLifetime)
	} else {
		// oauth2 stamps Expiry with the wall clock; the injected clock only
		// anchors ExpiresAt.
		session.ExpiresIn = resp.Expiry.Sub(time.Now()).Round(time.Second)
		session.ExpiresAt = requested.Add(session.ExpiresIn)
	}

	logging.Debug(subsystem, "Device code issued, expires in %s, interval %s", session.ExpiresIn, session.Interval)
	return session, nil
}

func (c *Client) classifyDeviceAuthError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &TransientProviderError{Endpoint: c.deviceCodeURL, Attempts: 1, Err: err}
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if status >= http.StatusInternalServerError {
		return &TransientProviderError{
			Endpoint: c.deviceCodeURL,
			Attempts: 1,
			Err:      fmt.Errorf("server returned status %d", status),
		}
	}

	code, desc := re.ErrorCode, re.ErrorDescription
	if code == "" {
		var body oauthErrorBody
		if json.Unmarshal(re.Body, &body) == nil {
			code, desc = body.Error, body.Description
		}
	}
	if code == "" {
		code = CodeInvalidClient
		desc = fmt.Sprintf("device authorization rejected with status %d", status)
	}
	return &TerminalAuthError{Code: code, Description: desc}
}

type oauthErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	Scope        string          `json:"scope"`
	ExpiresIn    json.Number     `json:"expires_in"`
	ExpiresAt    json.RawMessage `json:"expires_at"`
	Error        string          `json:"error"`
	Description  string          `json:"error_description"`
}

// expiresAt accepts an RFC 3339 string; anything else is ignored and the
// expiry falls back to created_at + expires_in.
func (tr *tokenResponse) expiresAt() *time.Time {
	if len(tr.ExpiresAt) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(tr.ExpiresAt, &s); err != nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// pollResult is the outcome of a single token request. Exactly one of
// cred, code or err is set.
type pollResult struct {
	cred *credstore.Credential
	code string
	desc string
	err  error
}

// PollForToken polls the token endpoint until the user approves, a terminal
// error arrives, the session expires or ctx is cancelled. It never touches
// the credential store; saving the result is up to the caller.
func (c *Client) PollForToken(ctx context.Context, session *Session, clientID string) (*credstore.Credential, error) {
	if session == nil || session.DeviceCode == "" {
		return nil, errors.New("device session has no device code")
	}

	interval := session.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := session.ExpiresAt
	if deadline.IsZero() && session.ExpiresIn > 0 {
		deadline = c.now().Add(session.ExpiresIn)
	}

	state := StatePending
	failures := 0

	for attempt := 1; ; attempt++ {
		if !deadline.IsZero() && !c.now().Before(deadline) {
			c.notify(state, StateExpired, attempt, interval)
			return nil, &TerminalAuthError{Code: CodeExpiredToken, Description: "the device code expired before it was approved"}
		}

		res := c.requestToken(ctx, session.DeviceCode, clientID)

		switch {
		case res.err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failures++
			logging.Warn(subsystem, "Token poll attempt %d failed (%d/%d): %v", attempt, failures, c.maxTransient, res.err)
			if failures >= c.maxTransient {
				return nil, &TransientProviderError{Endpoint: c.tokenURL, Attempts: failures, Err: res.err}
			}

		case res.cred != nil:
			c.notify(state, StateSucceeded, attempt, interval)
			logging.Info(subsystem, "Device authorization approved after %d attempts", attempt)
			return res.cred, nil

		case res.code == CodeAuthorizationPending:
			failures = 0
			c.notify(state, StatePending, attempt, interval)
			state = StatePending

		case res.code == CodeSlowDown:
			failures = 0
			interval += SlowDownIncrement
			c.notify(state, StateSlowed, attempt, interval)
			logging.Debug(subsystem, "Provider asked to slow down, interval now %s", interval)
			// SLOWED is transient; the next poll is PENDING again with the new interval.
			state = StatePending

		case res.code == CodeExpiredToken:
			c.notify(state, StateExpired, attempt, interval)
			return nil, &TerminalAuthError{Code: res.code, Description: res.desc}

		default:
			// access_denied and every code we do not understand end the login.
			c.notify(state, StateDenied, attempt, interval)
			return nil, &TerminalAuthError{Code: res.code, Description: res.desc}
		}

		if err := c.wait(ctx, interval); err != nil {
			return nil, err
		}
	}
}

func (c *Client) notify(from, to State, attempt int, interval time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer(Transition{From: from, To: to, Attempt: attempt, Interval: interval})
}

// requestToken performs one device_code grant request and classifies the answer.
func (c *Client) requestToken(ctx context.Context, deviceCode, clientID string) pollResult {
	data := url.Values{
		"grant_type":  {GrantType},
		"device_code": {deviceCode},
		"client_id":   {clientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return pollResult{err: fmt.Errorf("failed to create token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pollResult{err: fmt.Errorf("token request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pollResult{err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return pollResult{err: fmt.Errorf("token endpoint returned status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return pollResult{err: fmt.Errorf("failed to parse token response (status %d): %w", resp.StatusCode, err)}
	}

	if tr.Error != "" {
		return pollResult{code: tr.Error, desc: tr.Description}
	}
	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		return pollResult{err: fmt.Errorf("token endpoint returned status %d without a token or error code", resp.StatusCode)}
	}

	expiresIn, _ := tr.ExpiresIn.Int64()
	return pollResult{cred: &credstore.Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		Scope:        tr.Scope,
		TokenType:    tr.TokenType,
		ExpiresIn:    expiresIn,
		CreatedAt:    c.now().UnixMilli(),
		ExpiresAt:    tr.expiresAt(),
	}}
}
