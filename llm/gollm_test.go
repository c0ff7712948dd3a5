package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestGollmAdapterTranslateError(t *testing.T) {
	adapter := &GollmAdapter{name: "openai"}

	tests := []struct {
		errMsg string
		check  func(error) bool
	}{
		{"401 Unauthorized", func(err error) bool { _, ok := err.(*AuthenticationError); return ok }},
		{"invalid api key", func(err error) bool { _, ok := err.(*AuthenticationError); return ok }},
		{"403 Forbidden", func(err error) bool { _, ok := err.(*AccessDeniedError); return ok }},
		{"404 not found", func(err error) bool { _, ok := err.(*NotFoundError); return ok }},
		{"429 rate limit exceeded", func(err error) bool { _, ok := err.(*RateLimitError); return ok }},
		{"insufficient quota remaining", func(err error) bool { _, ok := err.(*QuotaExceededError); return ok }},
		{"context length exceeded", func(err error) bool { _, ok := err.(*ContextLengthError); return ok }},
		{"prompt is too long for this model", func(err error) bool { _, ok := err.(*ContextLengthError); return ok }},
		{"500 internal server error", func(err error) bool { _, ok := err.(*ServerError); return ok }},
		{"timeout waiting for response", func(err error) bool { _, ok := err.(*RequestTimeoutError); return ok }},
		{"content filter triggered", func(err error) bool { _, ok := err.(*ContentFilterError); return ok }},
		{"something unknown", func(err error) bool { _, ok := err.(*ProviderError); return ok }},
	}

	for _, tt := range tests {
		err := adapter.translateError(errors.New(tt.errMsg))
		if err == nil {
			t.Errorf("expected non-nil error for %q", tt.errMsg)
			continue
		}
		if !tt.check(err) {
			t.Errorf("for %q: unexpected error type %T", tt.errMsg, err)
		}
	}
}

func TestGollmAdapterTranslateRequest(t *testing.T) {
	adapter := &GollmAdapter{name: "openai"}

	req := Request{
		Messages: []Message{
			SystemMessage("You write Python."),
			UserMessage("Create a calculator."),
			AssistantMessage("^^^start^^^ ... ^^^end^^^"),
			UserMessage("Now improve it."),
		},
	}

	prompt := adapter.translateRequest(req, "gpt-4o")
	if prompt == nil {
		t.Fatal("expected prompt")
	}
	if !strings.Contains(prompt.Input, "Create a calculator.") {
		t.Errorf("expected user text in prompt input, got %q", prompt.Input)
	}
	if !strings.Contains(prompt.Input, "[Assistant]: ^^^start^^^") {
		t.Errorf("expected assistant context in prompt input, got %q", prompt.Input)
	}
	if strings.Contains(prompt.Input, "You write Python.") {
		t.Errorf("system text should not be in the user input for chat models, got %q", prompt.Input)
	}
}

func TestGollmAdapterTranslateRequestReasoningModel(t *testing.T) {
	adapter := &GollmAdapter{name: "openai"}

	req := Request{
		Messages: []Message{
			SystemMessage("You write Python."),
			UserMessage("Create a calculator."),
		},
	}

	// Reasoning models reject system prompts, so the system text folds
	// into the user input.
	prompt := adapter.translateRequest(req, "o1-mini")
	if !strings.Contains(prompt.Input, "You write Python.") {
		t.Errorf("expected system text folded into input, got %q", prompt.Input)
	}
	if !strings.Contains(prompt.Input, "Create a calculator.") {
		t.Errorf("expected user text in input, got %q", prompt.Input)
	}
}

func TestGollmAdapterTranslateRequestEmpty(t *testing.T) {
	adapter := &GollmAdapter{name: "claude"}
	prompt := adapter.translateRequest(Request{}, "claude-3-5-sonnet-20241022")
	if prompt.Input != "Hello" {
		t.Errorf("expected placeholder input for empty request, got %q", prompt.Input)
	}
}

func TestGollmAdapterResolveModel(t *testing.T) {
	openai := &GollmAdapter{name: "openai"}
	if got := openai.resolveModel(Request{Model: "mistral-nemo"}); got != "gpt-4o" {
		t.Errorf("expected remap to gpt-4o, got %q", got)
	}
	if got := openai.resolveModel(Request{Model: "o1-preview"}); got != "o1-preview" {
		t.Errorf("expected o1-preview passthrough, got %q", got)
	}

	claude := &GollmAdapter{name: "claude"}
	if got := claude.resolveModel(Request{Model: "mistral-nemo"}); got != "claude-3-5-sonnet-20241022" {
		t.Errorf("expected remap to claude default, got %q", got)
	}
}

func TestGollmAdapterBuildResponse(t *testing.T) {
	adapter := &GollmAdapter{name: "claude", model: "claude-3-5-sonnet-20241022"}

	req := Request{
		Model:    "claude-3-5-sonnet-20241022",
		Messages: []Message{UserMessage("Write a function.")},
	}
	resp := adapter.buildResponse(req, "claude-3-5-sonnet-20241022", "def f():\n    return 1")

	if resp.Provider != "claude" {
		t.Errorf("expected provider claude, got %q", resp.Provider)
	}
	if resp.Model != "claude-3-5-sonnet-20241022" {
		t.Errorf("unexpected model %q", resp.Model)
	}
	if !strings.HasPrefix(resp.ID, "resp_") {
		t.Errorf("expected resp_ prefix on ID, got %q", resp.ID)
	}
	if resp.Usage.OutputTokens <= 0 {
		t.Errorf("expected positive output tokens, got %d", resp.Usage.OutputTokens)
	}
	if resp.Usage.TotalTokens != resp.Usage.InputTokens+resp.Usage.OutputTokens {
		t.Errorf("inconsistent usage %+v", resp.Usage)
	}
}

func TestNewGollmAdapterUnsupportedProvider(t *testing.T) {
	_, err := NewGollmAdapter("gemini", "key")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
