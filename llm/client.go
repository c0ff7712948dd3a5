package llm

import (
	"context"
	"os"
	"sync"
)

// CompleteFunc is the signature wrapped by middleware.
type CompleteFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps Complete calls for cross-cutting concerns such as
// logging or retry.
type Middleware func(ctx context.Context, req Request, next CompleteFunc) (*Response, error)

// StreamFunc is the signature wrapped by stream middleware.
type StreamFunc func(ctx context.Context, req Request) (<-chan StreamEvent, error)

// StreamMiddleware wraps Stream calls.
type StreamMiddleware func(ctx context.Context, req Request, next StreamFunc) (<-chan StreamEvent, error)

// Client routes requests to registered provider adapters.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
	streamMW        []StreamMiddleware
	mu              sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers an adapter under the given name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
	}
}

// WithDefaultProvider sets the provider used when a request names none.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware appends Complete middleware. Middleware runs in
// registration order.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithStreamMiddleware appends Stream middleware.
func WithStreamMiddleware(mw ...StreamMiddleware) ClientOption {
	return func(c *Client) {
		c.streamMW = append(c.streamMW, mw...)
	}
}

// NewClient creates a client. When exactly one provider is registered it
// becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[string]ProviderAdapter),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

// RegisterProvider adds an adapter after construction.
func (c *Client) RegisterProvider(name string, adapter ProviderAdapter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[name] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = name
	}
}

// Providers returns the names of all registered adapters.
func (c *Client) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	return names
}

// resolveProvider picks the adapter for a request: the request's
// explicit provider, then the client default, then the model catalog.
func (c *Client) resolveProvider(req Request) (ProviderAdapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" && req.Model != "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, &ConfigurationError{ClientError{Message: "no provider specified and no default configured"}}
	}

	adapter, ok := c.providers[name]
	if !ok {
		return nil, &ConfigurationError{ClientError{Message: "provider not registered: " + name}}
	}
	return adapter, nil
}

// Complete routes a request through the middleware chain to its adapter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}

	final := func(ctx context.Context, req Request) (*Response, error) {
		return adapter.Complete(ctx, req)
	}

	handler := final
	for i := len(c.middleware) - 1; i >= 0; i-- {
		mw := c.middleware[i]
		next := handler
		handler = func(ctx context.Context, req Request) (*Response, error) {
			return mw(ctx, req, next)
		}
	}

	return handler(ctx, req)
}

// Stream routes a streaming request through the stream middleware chain.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	adapter, err := c.resolveProvider(req)
	if err != nil {
		return nil, err
	}

	final := func(ctx context.Context, req Request) (<-chan StreamEvent, error) {
		return adapter.Stream(ctx, req)
	}

	handler := final
	for i := len(c.streamMW) - 1; i >= 0; i-- {
		mw := c.streamMW[i]
		next := handler
		handler = func(ctx context.Context, req Request) (<-chan StreamEvent, error) {
			return mw(ctx, req, next)
		}
	}

	return handler(ctx, req)
}

// Initialize runs startup validation on adapters that implement
// Initializer, stopping at the first failure.
func (c *Client) Initialize() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, adapter := range c.providers {
		if init, ok := adapter.(Initializer); ok {
			if err := init.Initialize(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases resources held by adapters that implement Closer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, adapter := range c.providers {
		if closer, ok := adapter.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var (
	defaultClient   *Client
	defaultClientMu sync.Mutex
)

// GetDefaultClient returns the process-wide client, building it from the
// environment on first use.
func GetDefaultClient() (*Client, error) {
	defaultClientMu.Lock()
	defer defaultClientMu.Unlock()

	if defaultClient == nil {
		client, err := NewClientFromEnv()
		if err != nil {
			return nil, err
		}
		defaultClient = client
	}
	return defaultClient, nil
}

// SetDefaultClient replaces the process-wide client.
func SetDefaultClient(c *Client) {
	defaultClientMu.Lock()
	defer defaultClientMu.Unlock()
	defaultClient = c
}

// NewClientFromEnv builds a client from environment variables. The
// ollama adapter is always registered since it needs no credentials;
// openai and claude adapters are registered when their API keys are set.
func NewClientFromEnv() (*Client, error) {
	opts := []ClientOption{
		WithProvider("ollama", NewOllamaAdapter("", "")),
		WithDefaultProvider("ollama"),
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		adapter, err := NewGollmAdapter("openai", key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProvider("openai", adapter))
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		adapter, err := NewGollmAdapter("claude", key)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithProvider("claude", adapter))
	}

	return NewClient(opts...), nil
}
