package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Registry builds and caches clients addressed as "provider" or
// "provider/model", sharing default middleware and timeouts across them.
//
//	registry, err := llm.NewRegistry(llm.RegistryConfig{
//	    Providers:       llm.DefaultProviders(),
//	    DefaultProvider: "claude-cli",
//	})
//	client, err := registry.GetClient("anthropic/claude-opus-4-1-20250805")
type Registry struct {
	providers         map[string]ProviderConfig
	clients           map[string]*Client
	defaultProvider   string
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	mu                sync.RWMutex
}

// ProviderConfig holds provider-specific configuration.
type ProviderConfig struct {
	// Type is the registered provider factory name.
	Type string
	// EnvVar names the environment variable holding the API key. Empty for
	// providers that manage their own credentials.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// BaseURL overrides the provider's API endpoint.
	BaseURL string
	// Binary overrides the executable for CLI-backed providers.
	Binary string
	// Middleware is applied inside the registry's default middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the provider registry.
type RegistryConfig struct {
	// Providers defines the available providers and their configurations.
	Providers map[string]ProviderConfig
	// DefaultProvider is used by GetDefaultClient.
	DefaultProvider string
	// DefaultTimeout is applied to every client the registry creates.
	DefaultTimeout time.Duration
	// DefaultMiddleware wraps every client the registry creates.
	DefaultMiddleware []Middleware
}

// DefaultProviders returns the standard provider table. A fresh map is
// returned so callers may override entries.
func DefaultProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"claude-cli": {
			Type:   "claude-cli",
			Binary: ClaudeCLIDefaultBinary,
		},
		"anthropic": {
			Type:         "anthropic",
			EnvVar:       "ANTHROPIC_API_KEY",
			DefaultModel: AnthropicDefaultModel,
		},
		"openai": {
			Type:         "openai",
			EnvVar:       "OPENAI_API_KEY",
			DefaultModel: OpenAIDefaultModel,
		},
		"google": {
			Type:         "google",
			EnvVar:       "GOOGLE_API_KEY",
			DefaultModel: GoogleDefaultModel,
		},
	}
}

// NewRegistry creates a new provider registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}

	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]*Client),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// GetDefaultClient returns a client for the default provider and its
// default model.
func (r *Registry) GetDefaultClient() (*Client, error) {
	return r.GetClient(r.defaultProvider)
}

// GetClient retrieves a client by "provider" or "provider/model". Clients
// are created lazily and cached per provider/model pair.
func (r *Registry) GetClient(spec string) (*Client, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.parseSpec(spec)
	key := buildCacheKey(provider, model)

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// Providers returns the configured provider names.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

func (r *Registry) parseSpec(spec string) (provider, model string) {
	provider, model, found := strings.Cut(spec, "/")
	if !found {
		if providerConfig, ok := r.providers[provider]; ok {
			model = providerConfig.DefaultModel
		}
	}
	return provider, model
}

func buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

func (r *Registry) createClient(provider, model string) (*Client, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	var apiKey string
	if providerConfig.EnvVar != "" {
		apiKey = os.Getenv(providerConfig.EnvVar)
		if apiKey == "" {
			return nil, NewProviderError(provider, ErrorTypeAuthentication, 0,
				fmt.Sprintf("%s environment variable not set", providerConfig.EnvVar), ErrEmptyAPIKey)
		}
	}

	config := ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Binary:  providerConfig.Binary,
		Timeout: r.defaultTimeout,
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewClient(providerConfig.Type, config)
}
