package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// gollmProviderNames maps our provider identifiers onto gollm's.
var gollmProviderNames = map[string]string{
	"openai": "openai",
	"claude": "anthropic",
}

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter
// for the hosted providers.
type GollmAdapter struct {
	name  string
	llm   gollm.LLM
	model string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithGollmModel sets the default model for the adapter.
func WithGollmModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithGollmMaxTokens sets the default max tokens.
func WithGollmMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithGollmTemperature sets the default temperature.
func WithGollmTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates an adapter for "openai" or "claude". If apiKey
// is empty, gollm reads it from the provider's environment variable.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	gollmProvider, ok := gollmProviderNames[provider]
	if !ok {
		return nil, &ConfigurationError{ClientError{Message: "unsupported provider: " + provider}}
	}

	cfg := &gollmAdapterConfig{
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		model = DefaultModel(provider)
	}
	maxTokens := cfg.maxTokens
	if maxTokens == 0 {
		maxTokens = MaxOutputFor(provider, model)
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(gollmProvider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // retries are handled by the caller
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	inner, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", provider, err)
	}

	return &GollmAdapter{
		name:  provider,
		llm:   inner,
		model: model,
	}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance.
func NewGollmAdapterFromLLM(provider string, inner gollm.LLM) *GollmAdapter {
	return &GollmAdapter{
		name:  provider,
		llm:   inner,
		model: DefaultModel(provider),
	}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.name
}

// resolveModel maps the requested model onto one this provider serves.
func (a *GollmAdapter) resolveModel(req Request) string {
	return ResolveModel(a.name, req.Model)
}

// checkContextWindow rejects prompts that cannot fit the model's window
// before any tokens are spent on the request.
func (a *GollmAdapter) checkContextWindow(req Request, model string) error {
	window := ContextWindowFor(a.name, model)
	if window <= 0 {
		return nil
	}
	if CountRequestTokens(req) >= window {
		return &ContextLengthError{ProviderError: ProviderError{
			ClientError: ClientError{Message: "prompt too long for model " + model},
			Provider:    a.name,
			StatusCode:  413,
		}}
	}
	return nil
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	model := a.resolveModel(req)
	if err := a.checkContextWindow(req, model); err != nil {
		return nil, err
	}

	prompt := a.translateRequest(req, model)
	a.applyRequestOptions(req, model)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildResponse(req, model, text), nil
}

// Stream sends a streaming request and returns a channel of events.
func (a *GollmAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	model := a.resolveModel(req)
	if err := a.checkContextWindow(req, model); err != nil {
		return nil, err
	}

	prompt := a.translateRequest(req, model)
	a.applyRequestOptions(req, model)

	ch := make(chan StreamEvent, 64)

	if !a.llm.SupportsStreaming() {
		// Fallback: generate the full response and emit it as one delta.
		go func() {
			defer close(ch)
			ch <- StreamEvent{Type: StreamStart}

			text, err := a.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- StreamEvent{Type: StreamError, Err: a.translateError(err)}
				return
			}

			ch <- StreamEvent{Type: TextDelta, Delta: text}

			resp := a.buildResponse(req, model, text)
			ch <- StreamEvent{
				Type:         StreamFinish,
				FinishReason: &resp.FinishReason,
				Usage:        &resp.Usage,
				Response:     resp,
			}
		}()
		return ch, nil
	}

	stream, err := a.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		ch <- StreamEvent{Type: StreamStart}

		var fullText strings.Builder
		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				ch <- StreamEvent{Type: StreamError, Err: a.translateError(err)}
				return
			}
			if token == nil {
				continue
			}

			fullText.WriteString(token.Text)
			ch <- StreamEvent{Type: TextDelta, Delta: token.Text}
		}

		resp := a.buildResponse(req, model, fullText.String())
		ch <- StreamEvent{
			Type:         StreamFinish,
			FinishReason: &resp.FinishReason,
			Usage:        &resp.Usage,
			Response:     resp,
		}
	}()

	return ch, nil
}

// translateRequest flattens the conversation into a gollm Prompt.
// Reasoning models reject system prompts, so for those the system text
// is folded into the user prompt instead.
func (a *GollmAdapter) translateRequest(req Request, model string) *gollm.Prompt {
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			userParts = append(userParts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				userParts = append(userParts, "[Assistant]: "+msg.Content)
			}
		}
	}

	reasoning := IsReasoningModel(model)
	if reasoning && systemPrompt != "" {
		userParts = append([]string{strings.TrimSpace(systemPrompt)}, userParts...)
		systemPrompt = ""
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
// Reasoning models reject sampling parameters, so those are skipped.
func (a *GollmAdapter) applyRequestOptions(req Request, model string) {
	a.llm.SetOption("model", model)

	reasoning := IsReasoningModel(model)
	if req.Temperature != nil && !reasoning {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.TopP != nil && !reasoning {
		a.llm.SetOption("top_p", *req.TopP)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a Response from generated text. gollm does
// not expose provider usage counts, so both sides are measured with the
// local tokenizer.
func (a *GollmAdapter) buildResponse(req Request, model, text string) *Response {
	inputTokens := CountRequestTokens(req)
	outputTokens := CountTokens(text)

	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.name,
		Text:         text,
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage: Usage{
			InputTokens:  inputTokens,
			OutputTokens: outputTokens,
			TotalTokens:  inputTokens + outputTokens,
		},
	}
}

// translateError converts a gollm error into the typed hierarchy.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	msgLower := strings.ToLower(msg)

	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid key") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 401,
		}}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 403,
		}}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 404,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "quota"):
		return &QuotaExceededError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 429,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens") || strings.Contains(msgLower, "prompt is too long"):
		return &ContextLengthError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server") || strings.Contains(msgLower, "overloaded"):
		return &ServerError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{ClientError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "content filter") || strings.Contains(msgLower, "safety"):
		return &ContentFilterError{ProviderError: ProviderError{
			ClientError: ClientError{Message: msg, Cause: err}, Provider: a.name,
		}}
	default:
		return &ProviderError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    a.name,
			Retryable:   true,
		}
	}
}
