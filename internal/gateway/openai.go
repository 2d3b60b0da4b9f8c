package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

const providerGroq = "groq"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// code returns the error code as text; some providers send numbers.
func (e *chatError) code() string {
	switch v := e.Code.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage"`
	XGroq *struct {
		Usage *chatUsage `json:"usage"`
	} `json:"x_groq"`
	Error *chatError `json:"error"`
}

// openAIGateway streams from an OpenAI-compatible chat/completions endpoint.
type openAIGateway struct {
	provider    string
	baseURL     string
	model       string
	apiKey      string
	temperature *float64
	httpClient  *http.Client
	now         func() time.Time
}

func (g *openAIGateway) Provider() string { return g.provider }
func (g *openAIGateway) Model() string    { return g.model }

func (g *openAIGateway) SendMessage(ctx context.Context, messages []Message, onChunk ChunkFunc) (*Result, error) {
	payload := chatRequest{
		Model:       g.model,
		Stream:      true,
		Temperature: g.temperature,
	}
	for _, m := range messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Provider: g.provider, Kind: KindInvalidRequest, Err: err}
	}

	endpoint := strings.TrimSuffix(g.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: g.provider, Kind: KindInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	logging.Debug("Gateway", "Streaming %d messages to %s model %s", len(messages), g.provider, g.model)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, g.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.statusError(resp)
	}

	result := &Result{FinishReason: FinishOther}
	var content strings.Builder
	completed := false

	streamErr := readEvents(resp.Body, func(data []byte) error {
		if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
			completed = true
			return errStopStream
		}

		var chunk chatChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return &Error{Provider: g.provider, Kind: KindStream, Message: "malformed stream chunk", Err: err}
		}
		if chunk.Error != nil {
			code := chunk.Error.code()
			return &Error{
				Provider: g.provider,
				Kind:     classify(0, code, chunk.Error.Type),
				Code:     firstNonEmpty(code, chunk.Error.Type),
				Message:  chunk.Error.Message,
			}
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]
			if text := choice.Delta.Content; text != "" {
				content.WriteString(text)
				if onChunk != nil {
					onChunk(text)
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				result.FinishReason = openAIFinishReason(*choice.FinishReason)
				completed = true
			}
		}

		usage := chunk.Usage
		if usage == nil && chunk.XGroq != nil {
			usage = chunk.XGroq.Usage
		}
		if usage != nil {
			result.Usage = Usage{
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
				TotalTokens:      usage.TotalTokens,
			}
		}
		return nil
	})

	result.Content = content.String()
	if streamErr == nil && !completed {
		streamErr = errIncompleteStream(g.provider)
	}
	if streamErr != nil {
		result.FinishReason = FinishError
		return result, streamFailure(ctx, g.provider, streamErr)
	}
	return result, nil
}

func (g *openAIGateway) statusError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body struct {
		Error *chatError `json:"error"`
	}
	var ce chatError
	if json.Unmarshal(raw, &body) == nil && body.Error != nil {
		ce = *body.Error
	} else {
		ce.Message = strings.TrimSpace(string(raw))
	}

	code := ce.code()
	return &Error{
		Provider:   g.provider,
		Kind:       classify(resp.StatusCode, code, ce.Type),
		StatusCode: resp.StatusCode,
		Code:       firstNonEmpty(code, ce.Type),
		RetryAfter: parseRetryAfter(resp.Header, g.now()),
		Message:    ce.Message,
	}
}

func openAIFinishReason(r string) FinishReason {
	switch r {
	case "stop":
		return FinishStop
	case "length":
		return FinishLength
	case "content_filter":
		return FinishContentFilter
	default:
		return FinishOther
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
