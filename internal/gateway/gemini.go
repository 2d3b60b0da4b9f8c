package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LuckySilver0021/atom/pkg/logging"
)

// DefaultGoogleBaseURL is the Generative Language API endpoint.
const DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

const providerGoogle = "google"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiChunk struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *geminiError `json:"error"`
}

// geminiGateway streams from streamGenerateContent with alt=sse.
type geminiGateway struct {
	baseURL     string
	model       string
	apiKey      string
	temperature *float64
	httpClient  *http.Client
	now         func() time.Time
}

func (g *geminiGateway) Provider() string { return providerGoogle }
func (g *geminiGateway) Model() string    { return g.model }

func (g *geminiGateway) buildRequest(messages []Message) geminiRequest {
	var req geminiRequest
	var system []string

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if g.temperature != nil {
		req.GenerationConfig = &geminiGenerationConfig{Temperature: g.temperature}
	}
	return req
}

func (g *geminiGateway) SendMessage(ctx context.Context, messages []Message, onChunk ChunkFunc) (*Result, error) {
	body, err := json.Marshal(g.buildRequest(messages))
	if err != nil {
		return nil, &Error{Provider: providerGoogle, Kind: KindInvalidRequest, Err: err}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		strings.TrimSuffix(g.baseURL, "/"), url.PathEscape(g.model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: providerGoogle, Kind: KindInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", g.apiKey)

	logging.Debug("Gateway", "Streaming %d messages to %s model %s", len(messages), providerGoogle, g.model)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, providerGoogle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, g.statusError(resp)
	}

	result := &Result{FinishReason: FinishOther}
	var content strings.Builder
	completed := false

	streamErr := readEvents(resp.Body, func(data []byte) error {
		var chunk geminiChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return &Error{Provider: providerGoogle, Kind: KindStream, Message: "malformed stream chunk", Err: err}
		}
		if chunk.Error != nil {
			return &Error{
				Provider:   providerGoogle,
				Kind:       classify(chunk.Error.Code, chunk.Error.Status),
				StatusCode: chunk.Error.Code,
				Code:       chunk.Error.Status,
				Message:    chunk.Error.Message,
			}
		}
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			result.FinishReason = FinishContentFilter
			completed = true
		}
		// Only the first candidate is used.
		if len(chunk.Candidates) > 0 {
			cand := chunk.Candidates[0]
			for _, p := range cand.Content.Parts {
				if p.Text == "" {
					continue
				}
				content.WriteString(p.Text)
				if onChunk != nil {
					onChunk(p.Text)
				}
			}
			if cand.FinishReason != "" {
				result.FinishReason = geminiFinishReason(cand.FinishReason)
				completed = true
			}
		}
		if u := chunk.UsageMetadata; u != nil {
			result.Usage = Usage{
				PromptTokens:     u.PromptTokenCount,
				CompletionTokens: u.CandidatesTokenCount,
				TotalTokens:      u.TotalTokenCount,
			}
		}
		return nil
	})

	result.Content = content.String()
	if streamErr == nil && !completed {
		streamErr = errIncompleteStream(providerGoogle)
	}
	if streamErr != nil {
		result.FinishReason = FinishError
		return result, streamFailure(ctx, providerGoogle, streamErr)
	}
	return result, nil
}

func (g *geminiGateway) statusError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var ge geminiError
	var single struct {
		Error *geminiError `json:"error"`
	}
	var list []struct {
		Error *geminiError `json:"error"`
	}
	switch {
	case json.Unmarshal(raw, &single) == nil && single.Error != nil:
		ge = *single.Error
	case json.Unmarshal(raw, &list) == nil && len(list) > 0 && list[0].Error != nil:
		ge = *list[0].Error
	default:
		ge.Message = strings.TrimSpace(string(raw))
	}

	return &Error{
		Provider:   providerGoogle,
		Kind:       classify(resp.StatusCode, ge.Status),
		StatusCode: resp.StatusCode,
		Code:       ge.Status,
		RetryAfter: parseRetryAfter(resp.Header, g.now()),
		Message:    ge.Message,
	}
}

func geminiFinishReason(r string) FinishReason {
	switch r {
	case "STOP":
		return FinishStop
	case "MAX_TOKENS":
		return FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "IMAGE_SAFETY":
		return FinishContentFilter
	default:
		return FinishOther
	}
}

// errIncompleteStream reports a stream that closed before the provider
// signalled the end of the reply.
func errIncompleteStream(provider string) *Error {
	return &Error{Provider: provider, Kind: KindStream, Message: "stream ended before completion"}
}

// streamFailure turns an error raised while reading the stream into a *Error.
func streamFailure(ctx context.Context, provider string, err error) *Error {
	if ge, ok := err.(*Error); ok {
		return ge
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &Error{Provider: provider, Kind: KindCanceled, Err: ctxErr}
	}
	return &Error{Provider: provider, Kind: KindStream, Message: "stream interrupted", Err: err}
}
