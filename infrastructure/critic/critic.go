// Package critic implements the critique oracle: it renders the love letter
// rubric into a single-turn request, sends it through an llm transport and
// classifies whatever goes wrong into the domain oracle error classes.
//
// The client never retries. A failed request is reported once and the
// caller decides what a failed sample is worth.
package critic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-amour/infrastructure/llm"
	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var (
	_ ports.Oracle = (*Client)(nil)
	_ ports.Oracle = unavailableOracle{}
)

var validate = validator.New()

// Options tunes each critique request.
type Options struct {
	// SystemPrompt is sent as the provider's system instruction.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt" validate:"required"`

	// Temperature is left to the provider default when nil.
	Temperature *float64 `yaml:"temperature" json:"temperature" validate:"omitempty,min=0,max=2"`

	// MaxTokens bounds the critique length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"min=1,max=32768"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    llm.DefaultMaxTokens,
	}
}

// Client is a ports.Oracle backed by an LLM transport.
type Client struct {
	llm      ports.LLMClient
	provider string
	options  Options
	prompts  *PromptBuilder
}

// NewClient creates a critique client that sends requests through client.
// The provider name is taken from the client when it exposes one.
func NewClient(client ports.LLMClient, options Options, rubric Rubric) (*Client, error) {
	if client == nil {
		return nil, errors.New("llm client cannot be nil")
	}
	if err := validate.Struct(options); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	prompts, err := NewPromptBuilder(rubric)
	if err != nil {
		return nil, err
	}

	provider := "llm"
	if p, ok := client.(interface{ Provider() string }); ok {
		provider = p.Provider()
	}

	return &Client{
		llm:      client,
		provider: provider,
		options:  options,
		prompts:  prompts,
	}, nil
}

// Provider returns the transport name used in error reports.
func (c *Client) Provider() string { return c.provider }

// Critique sends one request for text and returns the raw response.
// Every error is a *domain.OracleError.
func (c *Client) Critique(ctx context.Context, text domain.JudgedText) (string, error) {
	prompt, err := c.prompts.Build(text)
	if err != nil {
		return "", domain.NewOracleError(domain.ErrOracleGenericError, c.provider, err)
	}

	opts := map[string]any{
		"system":     c.options.SystemPrompt,
		"max_tokens": c.options.MaxTokens,
	}
	if c.options.Temperature != nil {
		opts["temperature"] = *c.options.Temperature
	}

	log := clog.FromContext(ctx).With("provider", c.provider, "model", c.llm.GetModel())
	if tokens, err := c.llm.EstimateTokens(prompt); err == nil {
		log = log.With("prompt_tokens", tokens)
	}

	start := time.Now()
	response, err := c.llm.Complete(ctx, prompt, opts)
	if err != nil {
		oerr := Classify(c.provider, err)
		log.With("class", oerr.Class.Error()).Warnf("critique request failed after %v: %v", time.Since(start), err)
		return "", oerr
	}
	if strings.TrimSpace(response) == "" {
		return "", domain.NewOracleError(domain.ErrOracleProcessError, c.provider, llm.ErrEmptyResponse)
	}

	log.Debugf("critique received in %v (%d bytes)", time.Since(start), len(response))
	return response, nil
}

// Classify maps a transport failure onto an oracle error class.
//
//   - unavailable: the oracle could not be reached or started, including a
//     missing CLI, rejected credentials and an open circuit.
//   - process error: the oracle started but failed, including non-zero
//     exits, provider server errors and empty responses.
//   - generic: everything else.
func Classify(provider string, err error) *domain.OracleError {
	var oerr *domain.OracleError
	if errors.As(err, &oerr) {
		return oerr
	}

	if errors.Is(err, llm.ErrCircuitOpen) {
		return domain.NewOracleError(domain.ErrOracleUnavailable, provider, err)
	}

	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		switch perr.Type {
		case llm.ErrorTypeUnavailable, llm.ErrorTypeAuthentication:
			return domain.NewOracleError(domain.ErrOracleUnavailable, provider, err)
		case llm.ErrorTypeProcess, llm.ErrorTypeServerError:
			return domain.NewOracleError(domain.ErrOracleProcessError, provider, err)
		}
	}

	if errors.Is(err, llm.ErrEmptyResponse) || errors.Is(err, llm.ErrNoResponseChoice) {
		return domain.NewOracleError(domain.ErrOracleProcessError, provider, err)
	}

	return domain.NewOracleError(domain.ErrOracleGenericError, provider, err)
}

// Unavailable returns an oracle that fails every request as unavailable.
// It stands in for a transport that could not be constructed, so each
// sample still degrades to an annotated fallback.
func Unavailable(provider string, cause error) ports.Oracle {
	return unavailableOracle{err: domain.NewOracleError(domain.ErrOracleUnavailable, provider, cause)}
}

type unavailableOracle struct {
	err *domain.OracleError
}

func (o unavailableOracle) Critique(context.Context, domain.JudgedText) (string, error) {
	return "", o.err
}
