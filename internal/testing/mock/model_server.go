package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RecordedRequest is a request received by ModelServer.
type RecordedRequest struct {
	Path   string
	Header http.Header
	Body   []byte
}

// ModelServer is a scripted model provider streaming Server-Sent Events.
type ModelServer struct {
	*httptest.Server

	mu       sync.Mutex
	scenario ModelScenario
	step     int
	requests []RecordedRequest
}

// NewModelServer starts a model server for scenario. Call Close when done.
func NewModelServer(scenario ModelScenario) *ModelServer {
	if scenario.Format == "" {
		scenario.Format = FormatGemini
	}
	s := &ModelServer{scenario: scenario}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// NewModelServerFromFile loads a YAML scenario and starts a server for it.
func NewModelServerFromFile(path string) (*ModelServer, error) {
	// #nosec G304 -- test fixture path
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model scenario %s: %w", path, err)
	}

	var scenario ModelScenario
	if err := yaml.Unmarshal(content, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse model scenario %s: %w", path, err)
	}
	switch scenario.Format {
	case "", FormatGemini, FormatOpenAI:
	default:
		return nil, fmt.Errorf("model scenario %s: unknown format %q", path, scenario.Format)
	}

	return NewModelServer(scenario), nil
}

// Requests returns every request received so far.
func (s *ModelServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or false when none arrived.
func (s *ModelServer) LastRequest() (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *ModelServer) next(r *http.Request) ModelResponse {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Path:   r.URL.RequestURI(),
		Header: r.Header.Clone(),
		Body:   body,
	})

	if len(s.scenario.Responses) == 0 {
		return ModelResponse{Chunks: []string{"ok"}}
	}
	idx := s.step
	if idx >= len(s.scenario.Responses) {
		idx = len(s.scenario.Responses) - 1
	} else {
		s.step++
	}
	return s.scenario.Responses[idx]
}

func (s *ModelServer) handle(w http.ResponseWriter, r *http.Request) {
	resp := s.next(r)

	if resp.Status != 0 && resp.Status != http.StatusOK {
		s.writeError(w, resp)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var delay time.Duration
	if resp.Delay != "" {
		delay, _ = time.ParseDuration(resp.Delay)
	}

	send := func(v any) {
		data, _ := json.Marshal(v)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for i, chunk := range resp.Chunks {
		if delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
		last := i == len(resp.Chunks)-1 && !resp.StreamError && !resp.Abort && !resp.Truncated
		send(s.chunkEvent(chunk, resp, last))
	}

	if resp.Truncated {
		return
	}

	switch {
	case resp.Abort:
		_, _ = io.WriteString(w, "data: {\"candi")
		if flusher != nil {
			flusher.Flush()
		}
		panic(http.ErrAbortHandler)
	case resp.StreamError:
		send(s.errorBody(resp, http.StatusInternalServerError))
	case len(resp.Chunks) == 0:
		send(s.chunkEvent("", resp, true))
	}

	if s.scenario.Format == FormatOpenAI && !resp.StreamError {
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *ModelServer) chunkEvent(text string, resp ModelResponse, last bool) any {
	if s.scenario.Format == FormatOpenAI {
		choice := map[string]any{
			"index": 0,
			"delta": map[string]any{"content": text},
		}
		event := map[string]any{
			"object":  "chat.completion.chunk",
			"choices": []any{choice},
		}
		if last {
			choice["finish_reason"] = s.finishReason(resp)
		}
		if last && (resp.PromptTokens > 0 || resp.CompletionTokens > 0) {
			event["x_groq"] = map[string]any{"usage": map[string]int{
				"prompt_tokens":     resp.PromptTokens,
				"completion_tokens": resp.CompletionTokens,
				"total_tokens":      resp.PromptTokens + resp.CompletionTokens,
			}}
		}
		return event
	}

	candidate := map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []any{map[string]string{"text": text}},
		},
	}
	event := map[string]any{"candidates": []any{candidate}}
	if last {
		candidate["finishReason"] = s.finishReason(resp)
	}
	if last && (resp.PromptTokens > 0 || resp.CompletionTokens > 0) {
		event["usageMetadata"] = map[string]int{
			"promptTokenCount":     resp.PromptTokens,
			"candidatesTokenCount": resp.CompletionTokens,
			"totalTokenCount":      resp.PromptTokens + resp.CompletionTokens,
		}
	}
	return event
}

func (s *ModelServer) finishReason(resp ModelResponse) string {
	switch {
	case resp.FinishReason != "":
		return resp.FinishReason
	case s.scenario.Format == FormatOpenAI:
		return "stop"
	default:
		return "STOP"
	}
}

func (s *ModelServer) errorBody(resp ModelResponse, status int) any {
	if resp.Status != 0 {
		status = resp.Status
	}
	message := resp.ErrorMessage
	if message == "" {
		message = "mock failure"
	}

	if s.scenario.Format == FormatOpenAI {
		return map[string]any{"error": map[string]any{
			"message": message,
			"type":    resp.ErrorCode,
			"code":    resp.ErrorCode,
		}}
	}
	return map[string]any{"error": map[string]any{
		"code":    status,
		"message": message,
		"status":  resp.ErrorCode,
	}}
}

func (s *ModelServer) writeError(w http.ResponseWriter, resp ModelResponse) {
	if resp.RetryAfter != "" {
		w.Header().Set("Retry-After", resp.RetryAfter)
	}
	var body any = s.errorBody(resp, resp.Status)
	if resp.WrapErrorInArray {
		body = []any{body}
	}
	writeJSON(w, resp.Status, body)
}
