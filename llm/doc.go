// Package llm provides a provider-agnostic client for the language
// models nemo-agent drives: a local Ollama server and the hosted OpenAI
// and Claude APIs (the latter two through the gollm library).
//
// # Architecture
//
//   - ProviderAdapter: the interface each backend implements
//     (OllamaAdapter speaks Ollama's HTTP API directly; GollmAdapter
//     wraps gollm.LLM for the hosted providers)
//   - Client: provider routing plus Complete/Stream middleware
//   - Retry: typed error classification with backoff
//   - Catalog: known models, context windows, and per-provider defaults
//
// # Quick Start
//
//	adapter := llm.NewOllamaAdapter("http://localhost:11434", "mistral-nemo")
//	client := llm.NewClient(llm.WithProvider("ollama", adapter))
//
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:    "mistral-nemo",
//	    Messages: []llm.Message{llm.UserMessage("Write a haiku about Go.")},
//	})
//	fmt.Println(resp.Text)
//
// Streaming delivers text incrementally and lets the caller cancel as
// soon as it has what it needs:
//
//	events, err := client.Stream(ctx, req)
//	acc := llm.NewStreamAccumulator()
//	for ev := range events {
//	    acc.Process(ev)
//	}
//	fmt.Println(acc.Text())
//
// # Model Catalog
//
// The catalog maps model identifiers to providers, context windows, and
// output caps. Requests naming a model another provider serves are
// remapped to the provider's default, so "mistral-nemo" against the
// openai provider transparently becomes "gpt-4o".
package llm
