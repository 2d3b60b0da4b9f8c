package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for session lookups.
const DefaultHTTPTimeout = 30 * time.Second

// Lookup is the remote answer for a token: the user and the session it
// belongs to. Both are nil when the token has no live session.
type Lookup struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// Looker fetches the session behind a token from the identity provider.
type Looker interface {
	LookupSession(ctx context.Context, bearerToken string) (*Lookup, error)
}

// APIResolver asks the identity provider's session endpoint who a token belongs to.
type APIResolver struct {
	endpoint   string
	httpClient *http.Client
}

// APIOption configures an APIResolver.
type APIOption func(*APIResolver)

// WithHTTPClient sets the base HTTP client. Bearer authentication is layered on top.
func WithHTTPClient(c *http.Client) APIOption {
	return func(r *APIResolver) {
		r.httpClient = c
	}
}

// NewAPIResolver creates a resolver for <serverURL><sessionPath>.
func NewAPIResolver(serverURL, sessionPath string, opts ...APIOption) *APIResolver {
	r := &APIResolver{
		endpoint:   strings.TrimSuffix(serverURL, "/") + sessionPath,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveUser implements Resolver.
func (r *APIResolver) ResolveUser(ctx context.Context, bearerToken string) (*User, error) {
	l, err := r.LookupSession(ctx, bearerToken)
	if err != nil || l == nil {
		return nil, err
	}
	return l.User, nil
}

// LookupSession calls the session endpoint with the token as bearer. A JSON
// null body or a 401 means "no session" and yields nil, nil.
func (r *APIResolver) LookupSession(ctx context.Context, bearerToken string) (*Lookup, error) {
	if bearerToken == "" {
		return nil, nil
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearerToken, TokenType: "Bearer"})
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, r.httpClient), ts)
	client.Timeout = r.httpClient.Timeout

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read session response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		logging.Debug("SessionResolver", "Session endpoint rejected the token")
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("session lookup returned status %d", resp.StatusCode)
	}

	var l *Lookup
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	if l == nil || l.User == nil || l.User.ID == "" {
		return nil, nil
	}
	return l, nil
}
