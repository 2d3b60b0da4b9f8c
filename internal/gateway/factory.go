package gateway

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/LuckySilver0021/atom/internal/config"
)

// DefaultResponseHeaderTimeout bounds the wait for the first response byte.
// Streams themselves are not time-limited; cancel the context instead.
const DefaultResponseHeaderTimeout = 60 * time.Second

// Option configures a Gateway created by New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	now        func() time.Time
}

// WithHTTPClient replaces the HTTP client used for model requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithClock replaces the time source used to interpret Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New returns the Gateway for the configured provider.
func New(cfg config.ModelConfig, opts ...Option) (Gateway, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = defaultHTTPClient()
	}

	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGoogle
	}

	model := cfg.Name
	if model == "" {
		model = config.DefaultModelName(provider)
	}

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", provider)
	}

	switch provider {
	case config.ProviderGoogle:
		base := cfg.BaseURL
		if base == "" {
			base = DefaultGoogleBaseURL
		}
		return &geminiGateway{
			baseURL:     base,
			model:       model,
			apiKey:      apiKey,
			temperature: cfg.Temperature,
			httpClient:  o.httpClient,
			now:         o.now,
		}, nil
	case config.ProviderGroq:
		base := cfg.BaseURL
		if base == "" {
			base = DefaultGroqBaseURL
		}
		return &openAIGateway{
			provider:    providerGroq,
			baseURL:     base,
			model:       model,
			apiKey:      apiKey,
			temperature: cfg.Temperature,
			httpClient:  o.httpClient,
			now:         o.now,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", provider)
	}
}

func defaultHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{Transport: transport}
}
