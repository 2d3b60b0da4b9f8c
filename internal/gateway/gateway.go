// Package gateway streams chat completions from a language-model provider.
//
// A Gateway is created once for a provider (google or groq) and sends the
// whole message list per call, forwarding each text fragment to a callback
// as soon as it arrives.
package gateway

import (
	"context"
)

// Role is the author of a message sent to the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry of the prompt.
type Message struct {
	Role    Role
	Content string
}

// FinishReason tells why the model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content-filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
)

// Usage is the token accounting reported by the provider, when available.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the outcome of one streamed completion. Content is the
// concatenation of every chunk passed to the callback.
type Result struct {
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// ChunkFunc receives text fragments synchronously, in arrival order.
type ChunkFunc func(chunk string)

// Gateway sends a conversation to a model and streams back the reply.
//
// Failures are reported as *Error. When the stream breaks after it started,
// the Result is still returned and holds the text received so far.
type Gateway interface {
	SendMessage(ctx context.Context, messages []Message, onChunk ChunkFunc) (*Result, error)
	Provider() string
	Model() string
}
