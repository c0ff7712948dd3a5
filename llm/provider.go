package llm

import "context"

// ProviderAdapter is the interface each provider backend implements.
type ProviderAdapter interface {
	// Name returns the provider identifier used for routing.
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of stream events.
	// The channel is closed after the finish or error event. Callers
	// that stop consuming early must cancel ctx and drain the channel.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// Closer is implemented by adapters holding resources that need release.
type Closer interface {
	Close() error
}

// Initializer is implemented by adapters that need startup validation.
type Initializer interface {
	Initialize() error
}
