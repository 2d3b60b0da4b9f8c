package mock

// StreamFormat selects the wire format a ModelServer speaks.
type StreamFormat string

const (
	// FormatGemini emits streamGenerateContent chunks.
	FormatGemini StreamFormat = "gemini"
	// FormatOpenAI emits chat.completion.chunk objects terminated by [DONE].
	FormatOpenAI StreamFormat = "openai"
)

// ModelScenario defines how a ModelServer answers successive requests.
type ModelScenario struct {
	// Format is the provider wire format.
	Format StreamFormat `yaml:"format"`
	// Responses are replayed in order; the last one repeats once exhausted.
	Responses []ModelResponse `yaml:"responses"`
}

// ModelResponse is one scripted answer.
type ModelResponse struct {
	// Chunks are streamed as individual SSE events.
	Chunks []string `yaml:"chunks,omitempty"`
	// FinishReason is sent with the final event, in the provider's vocabulary
	// (e.g. STOP or stop). Empty sends STOP or stop.
	FinishReason string `yaml:"finish_reason,omitempty"`
	// Truncated closes the stream after the chunks without a finish reason
	// or a [DONE] marker.
	Truncated bool `yaml:"truncated,omitempty"`
	// PromptTokens and CompletionTokens are reported as usage when non-zero.
	PromptTokens     int `yaml:"prompt_tokens,omitempty"`
	CompletionTokens int `yaml:"completion_tokens,omitempty"`

	// Status, when not 200, answers with an error body instead of a stream.
	Status int `yaml:"status,omitempty"`
	// ErrorCode is the structured provider code (RESOURCE_EXHAUSTED,
	// rate_limit_exceeded, ...) used for error bodies and stream errors.
	ErrorCode    string `yaml:"error_code,omitempty"`
	ErrorMessage string `yaml:"error_message,omitempty"`
	// RetryAfter is copied into the Retry-After header of error answers.
	RetryAfter string `yaml:"retry_after,omitempty"`
	// WrapErrorInArray sends the error body as a one-element JSON array.
	WrapErrorInArray bool `yaml:"wrap_error_in_array,omitempty"`

	// StreamError emits an error event after the chunks.
	StreamError bool `yaml:"stream_error,omitempty"`
	// Abort cuts the connection after the chunks without ending the stream.
	Abort bool `yaml:"abort,omitempty"`
	// Delay is waited before every chunk (e.g. "50ms").
	Delay string `yaml:"delay,omitempty"`
}
