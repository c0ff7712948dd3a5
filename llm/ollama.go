package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaAdapter talks to a local Ollama server over its HTTP API.
type OllamaAdapter struct {
	endpoint   string
	model      string
	httpClient *http.Client
	debug      bool
}

// OllamaOption configures an OllamaAdapter.
type OllamaOption func(*OllamaAdapter)

// WithOllamaHTTPClient replaces the underlying HTTP client.
func WithOllamaHTTPClient(hc *http.Client) OllamaOption {
	return func(a *OllamaAdapter) {
		a.httpClient = hc
	}
}

// WithOllamaDebug enables request and response logging.
func WithOllamaDebug(debug bool) OllamaOption {
	return func(a *OllamaAdapter) {
		a.debug = debug
	}
}

// NewOllamaAdapter creates an adapter for the given endpoint and default
// model. Empty arguments select http://localhost:11434 and the catalog
// default for ollama.
func NewOllamaAdapter(endpoint, model string, opts ...OllamaOption) *OllamaAdapter {
	a := &OllamaAdapter{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		// No client timeout: local generation can legitimately run for
		// minutes. Callers control lifetime through ctx.
		httpClient: &http.Client{},
	}
	if a.endpoint == "" {
		a.endpoint = defaultOllamaEndpoint
	}
	if a.model == "" {
		a.model = DefaultModel("ollama")
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider identifier.
func (a *OllamaAdapter) Name() string {
	return "ollama"
}

// Initialize validates the configured endpoint.
func (a *OllamaAdapter) Initialize() error {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return &ConfigurationError{ClientError{Message: "invalid ollama endpoint: " + a.endpoint, Cause: err}}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{ClientError{Message: "invalid ollama endpoint: " + a.endpoint}}
	}
	return nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaChunk covers both /api/chat and /api/generate response shapes.
type ollamaChunk struct {
	Model           string         `json:"model"`
	Message         *ollamaMessage `json:"message"`
	Response        string         `json:"response"`
	Done            bool           `json:"done"`
	DoneReason      string         `json:"done_reason"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
}

func (c ollamaChunk) text() string {
	if c.Message != nil {
		return c.Message.Content
	}
	return c.Response
}

func (a *OllamaAdapter) buildPayload(req Request, stream bool) map[string]interface{} {
	model := ResolveModel("ollama", req.Model)

	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	payload := map[string]interface{}{
		"model":    model,
		"messages": messages,
		"stream":   stream,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if req.MaxTokens != nil {
		payload["max_tokens"] = *req.MaxTokens
	}
	if len(req.Stop) > 0 {
		payload["stop"] = req.Stop
	}
	return payload
}

func (a *OllamaAdapter) post(ctx context.Context, payload map[string]interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ClientError{Message: "encode ollama request", Cause: err}
	}
	if a.debug {
		log.Printf("ollama request: %s", body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Message: "build ollama request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{ClientError{Message: "ollama request failed", Cause: err}}
	}

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		var retryAfter *float64
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.ParseFloat(ra, 64); err == nil {
				retryAfter = &secs
			}
		}

		message := strings.TrimSpace(string(detail))
		if message == "" {
			message = resp.Status
		}
		return nil, ErrorFromStatusCode(resp.StatusCode, message, "ollama", "", retryAfter)
	}

	return resp, nil
}

func (a *OllamaAdapter) buildResponse(req Request, chunk ollamaChunk, text string) *Response {
	model := chunk.Model
	if model == "" {
		model = ResolveModel("ollama", req.Model)
	}
	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     "ollama",
		Text:         text,
		FinishReason: finishReasonFromOllama(chunk.DoneReason),
		Usage: Usage{
			InputTokens:  chunk.PromptEvalCount,
			OutputTokens: chunk.EvalCount,
			TotalTokens:  chunk.PromptEvalCount + chunk.EvalCount,
		},
	}
}

func finishReasonFromOllama(doneReason string) FinishReason {
	switch doneReason {
	case "", "stop":
		return FinishReason{Reason: "stop", Raw: doneReason}
	case "length", "limit":
		return FinishReason{Reason: "length", Raw: doneReason}
	default:
		return FinishReason{Reason: "other", Raw: doneReason}
	}
}

// Complete sends a chat request and waits for the full response.
func (a *OllamaAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := a.post(ctx, a.buildPayload(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chunk ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return nil, &ClientError{Message: "decode ollama response", Cause: err}
	}
	if a.debug {
		log.Printf("ollama response: model=%s done_reason=%q eval_count=%d", chunk.Model, chunk.DoneReason, chunk.EvalCount)
	}

	return a.buildResponse(req, chunk, chunk.text()), nil
}

// Stream sends a chat request and emits deltas as newline-delimited JSON
// chunks arrive.
func (a *OllamaAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := a.post(ctx, a.buildPayload(req, true))
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent, 64)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		events <- StreamEvent{Type: StreamStart}

		var final ollamaChunk
		var text strings.Builder
		done := false

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk ollamaChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if delta := chunk.text(); delta != "" {
				text.WriteString(delta)
				events <- StreamEvent{Type: TextDelta, Delta: delta}
			}
			if chunk.Done {
				final = chunk
				done = true
				break
			}
		}

		if err := scanner.Err(); err != nil && !done {
			if ctx.Err() != nil {
				// Cancelled by the consumer; deltas so far stand.
				return
			}
			events <- StreamEvent{Type: StreamError, Err: &StreamErrorType{ClientError{Message: "ollama stream read failed", Cause: err}}}
			return
		}

		response := a.buildResponse(req, final, text.String())
		events <- StreamEvent{
			Type:         StreamFinish,
			FinishReason: &response.FinishReason,
			Usage:        &response.Usage,
			Response:     response,
		}
	}()

	return events, nil
}
