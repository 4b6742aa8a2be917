// Package llm provides the transport used to reach the critique oracle.
//
// Several providers (Anthropic, OpenAI, Google and a local claude CLI) sit
// behind the CoreLLM interface, and cross-cutting concerns such as rate
// limiting, circuit breaking, timeouts, metrics and tracing are layered on
// through middleware. A request is always exactly one round trip; nothing in
// this package retries.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-sonnet-4-20250514",
//	})
//	response, err := client.Complete(ctx, prompt, map[string]any{"system": system})
//
// With middleware:
//
//	client, err := llm.NewClient("claude-cli", llm.ClientConfig{
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("amour"),
//	        llm.MetricsMiddleware(collector),
//	        llm.CircuitBreakerMiddleware(5, 30*time.Second),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ahrav/go-amour/internal/ports"
)

// CoreLLM defines the minimal interface that LLM providers must implement.
// Middleware wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response text
	// along with input and output token counts.
	DoRequest(
		ctx context.Context,
		prompt string,
		opts map[string]any,
	) (
		response string,
		tokensIn, tokensOut int,
		err error,
	)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model to use for subsequent requests.
	SetModel(model string)
}

// ClientConfig holds all configuration options for creating an LLM client.
type ClientConfig struct {
	// APIKey authenticates requests to hosted providers. The claude-cli
	// provider ignores it.
	APIKey string

	// Model specifies which model to use for requests. Each provider falls
	// back to its own default when empty.
	Model string

	// BaseURL overrides the default API endpoint for hosted providers.
	BaseURL string

	// Binary overrides the executable used by the claude-cli provider.
	Binary string

	// Timeout sets the maximum duration for individual requests.
	// Zero value means no timeout.
	Timeout time.Duration

	// Middleware is applied in the order specified; the first entry is the
	// outermost wrapper.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM implementation to add cross-cutting functionality.
type Middleware func(CoreLLM) CoreLLM

// Client implements the ports.LLMClient interface on top of a middleware
// wrapped CoreLLM.
type Client struct {
	provider string
	core     CoreLLM
	counter  *TokenCounter
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient creates a new LLM client for the named provider. Provider
// factories validate their own credentials.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := GetProviderFactory(providerType)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	if config.Timeout > 0 {
		core = TimeoutMiddleware(ValidateTimeout(config.Timeout))(core)
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{
		provider: providerType,
		core:     core,
		counter:  NewTokenCounter(),
	}, nil
}

// Complete sends a prompt to the LLM and returns the response text.
// Failures are wrapped in a *ports.LLMError that preserves the provider
// error for classification.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends a prompt to the LLM and also reports token usage.
func (c *Client) CompleteWithUsage(
	ctx context.Context,
	prompt string,
	options map[string]any,
) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.core.DoRequest(ctx, prompt, options)
	if err != nil {
		return "", 0, 0, ports.NewLLMError(c.core.GetModel(), "Complete", err)
	}
	return response, tokensIn, tokensOut, nil
}

// EstimateTokens returns an approximate token count for the given text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.counter.EstimateTokens(text), nil
}

// GetModel returns the currently configured model name from the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider name the client was built for.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	factoriesMu       sync.RWMutex
	providerFactories = map[string]ProviderFactory{}
)

// RegisterProviderFactory registers a provider factory under a name.
// Built-in providers register themselves from init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	providerFactories[providerType] = factory
}

// GetProviderFactory looks up a registered provider factory.
func GetProviderFactory(providerType string) (ProviderFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := providerFactories[providerType]
	return f, ok
}

// RegisteredProviders returns the sorted names of all registered providers.
func RegisteredProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
