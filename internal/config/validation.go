package config

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the settings needed to authenticate. All problems are
// reported together.
func (c AtomConfig) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Server.URL) == "" {
		errs.Add("server.url", "is required")
	} else if u, err := url.Parse(c.Server.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("server.url", "must be an absolute http(s) URL", c.Server.URL)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs.Add("server.url", "must use http or https", c.Server.URL)
	}

	if strings.TrimSpace(c.Server.ClientID) == "" {
		errs.Add("server.clientId", "is required")
	}
	for field, p := range map[string]string{
		"server.deviceCodePath": c.Server.DeviceCodePath,
		"server.tokenPath":      c.Server.TokenPath,
		"server.sessionPath":    c.Server.SessionPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs.Add(field, "must start with '/'", p)
		}
	}

	if c.Chat.ContextMessages < 0 || c.Chat.ContextMessages > DefaultContextMessages {
		errs.Add("chat.contextMessages", fmt.Sprintf("must be between 0 and %d", DefaultContextMessages), c.Chat.ContextMessages)
	}
	if c.Chat.TitleLength < 0 {
		errs.Add("chat.titleLength", "must not be negative", c.Chat.TitleLength)
	}
	if c.Chat.SummaryTemplate != "" {
		if _, err := template.New("summary").Funcs(sprig.TxtFuncMap()).Parse(c.Chat.SummaryTemplate); err != nil {
			errs.Add("chat.summaryTemplate", fmt.Sprintf("does not parse: %v", err))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// ValidateModel checks the settings needed to start a chat session.
func (c AtomConfig) ValidateModel() error {
	var errs ValidationErrors

	switch c.Model.Provider {
	case ProviderGoogle:
		if c.Model.GoogleAPIKey == "" {
			errs.Add("model.googleApiKey", "is required for the google provider (or set GOOGLE_GENERATIVE_AI_API_KEY)")
		}
	case ProviderGroq:
		if c.Model.GroqAPIKey == "" {
			errs.Add("model.groqApiKey", "is required for the groq provider (or set GROQ_API_KEY)")
		}
	default:
		errs.Add("model.provider", "must be one of: google, groq", string(c.Model.Provider))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
