package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaAdapterComplete(t *testing.T) {
	var gotPayload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		fmt.Fprint(w, `{"model":"mistral-nemo","message":{"role":"assistant","content":"def add(a, b): return a + b"},"done":true,"done_reason":"stop","eval_count":12,"prompt_eval_count":30}`)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "mistral-nemo")
	temp := 0.2
	resp, err := adapter.Complete(context.Background(), Request{
		Model:       "mistral-nemo",
		Messages:    []Message{SystemMessage("You write Python."), UserMessage("Add two numbers.")},
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Text != "def add(a, b): return a + b" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %q", resp.Provider)
	}
	if resp.Usage.InputTokens != 30 || resp.Usage.OutputTokens != 12 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Errorf("expected total 42, got %d", resp.Usage.TotalTokens)
	}
	if resp.FinishReason.Reason != "stop" {
		t.Errorf("expected stop, got %q", resp.FinishReason.Reason)
	}

	if gotPayload["model"] != "mistral-nemo" {
		t.Errorf("expected model in payload, got %v", gotPayload["model"])
	}
	if gotPayload["stream"] != false {
		t.Errorf("expected stream=false, got %v", gotPayload["stream"])
	}
	if gotPayload["temperature"] != 0.2 {
		t.Errorf("expected temperature in payload, got %v", gotPayload["temperature"])
	}
	msgs, ok := gotPayload["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected 2 messages in payload, got %v", gotPayload["messages"])
	}
	first := msgs[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("expected system role first, got %v", first["role"])
	}
}

func TestOllamaAdapterServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model failed to load"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "mistral-nemo")
	_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ServerError); !ok {
		t.Errorf("expected ServerError, got %T: %v", err, err)
	}
	if !IsRetryable(err) {
		t.Error("expected 500 to be retryable")
	}
}

func TestOllamaAdapterModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "mistral-nemo")
	_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}
	if IsRetryable(err) {
		t.Error("expected 404 to not be retryable")
	}
}

func TestOllamaAdapterNetworkError(t *testing.T) {
	adapter := NewOllamaAdapter("http://127.0.0.1:1", "mistral-nemo")
	_, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*NetworkError); !ok {
		t.Errorf("expected NetworkError, got %T", err)
	}
}

func TestOllamaAdapterStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["stream"] != true {
			t.Errorf("expected stream=true, got %v", payload["stream"])
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"^^^start^^^"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"<<<main.py>>>"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"print(1)"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":9,"prompt_eval_count":4}`)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "mistral-nemo")
	events, err := adapter.Stream(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc := NewStreamAccumulator()
	var deltas int
	for ev := range events {
		if ev.Type == TextDelta {
			deltas++
		}
		acc.Process(ev)
	}

	if deltas != 3 {
		t.Errorf("expected 3 deltas, got %d", deltas)
	}
	if acc.Text() != "^^^start^^^<<<main.py>>>print(1)" {
		t.Errorf("unexpected accumulated text %q", acc.Text())
	}
	if !acc.Finished() {
		t.Fatal("expected finish event")
	}
	resp := acc.Response()
	if resp.Usage.OutputTokens != 9 || resp.Usage.InputTokens != 4 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
}

func TestOllamaAdapterStreamCancel(t *testing.T) {
	blocker := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"partial"},"done":false}`)
		flusher.Flush()
		<-blocker
	}))
	defer server.Close()
	// Runs before server.Close so the blocked handler can exit.
	defer close(blocker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := NewOllamaAdapter(server.URL, "mistral-nemo")
	events, err := adapter.Stream(ctx, Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc := NewStreamAccumulator()
	for ev := range events {
		acc.Process(ev)
		if ev.Type == TextDelta {
			cancel()
		}
	}

	if acc.Text() != "partial" {
		t.Errorf("expected partial text, got %q", acc.Text())
	}
	if acc.Err() != nil {
		t.Errorf("cancellation should not surface as a stream error, got %v", acc.Err())
	}
}

func TestOllamaAdapterDefaults(t *testing.T) {
	adapter := NewOllamaAdapter("", "")
	if adapter.endpoint != "http://localhost:11434" {
		t.Errorf("unexpected default endpoint %q", adapter.endpoint)
	}
	if adapter.model != "mistral-nemo" {
		t.Errorf("unexpected default model %q", adapter.model)
	}
	if adapter.Name() != "ollama" {
		t.Errorf("unexpected name %q", adapter.Name())
	}
}

func TestOllamaAdapterTrailingSlash(t *testing.T) {
	adapter := NewOllamaAdapter("http://localhost:11434/", "")
	if adapter.endpoint != "http://localhost:11434" {
		t.Errorf("expected trailing slash trimmed, got %q", adapter.endpoint)
	}
}

type countingTransport struct {
	calls int
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestOllamaAdapterCustomHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"ok"},"done":true,"done_reason":"stop"}`)
	}))
	defer server.Close()

	transport := &countingTransport{}
	adapter := NewOllamaAdapter(server.URL, "mistral-nemo", WithOllamaHTTPClient(&http.Client{Transport: transport}))

	resp, err := adapter.Complete(context.Background(), Request{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if transport.calls != 1 {
		t.Errorf("expected the request to go through the injected client, got %d calls", transport.calls)
	}
}

func TestOllamaAdapterInitialize(t *testing.T) {
	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"http://localhost:11434", false},
		{"https://ollama.internal:443", false},
		{"localhost:11434", true},
		{"ftp://localhost", true},
		{"http://", true},
	}
	for _, tt := range tests {
		err := NewOllamaAdapter(tt.endpoint, "").Initialize()
		if tt.wantErr && err == nil {
			t.Errorf("endpoint %q: expected error", tt.endpoint)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("endpoint %q: unexpected error %v", tt.endpoint, err)
		}
	}
}
