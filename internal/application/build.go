package application

import (
	"context"
	"fmt"
	"io"

	"github.com/chainguard-dev/clog"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-amour/infrastructure/critic"
	"github.com/ahrav/go-amour/infrastructure/extractor"
	"github.com/ahrav/go-amour/infrastructure/llm"
	"github.com/ahrav/go-amour/infrastructure/units"
	"github.com/ahrav/go-amour/internal/ports"
)

// maxSamples matches the upper bound accepted by EvaluationConfig.
const maxSamples = 100

// tracingService labels oracle request spans.
const tracingService = "amour"

// Dependencies are optional collaborators supplied by the caller. Zero
// values select the production implementation or disable the concern.
type Dependencies struct {
	// Metrics receives pipeline and transport metrics.
	Metrics ports.MetricsCollector
	// Observer receives evaluation lifecycle callbacks.
	Observer ports.EvaluationObserver
	// LLM replaces the provider registry as the critique transport.
	LLM ports.LLMClient
	// Oracle replaces the critique client entirely. It takes precedence
	// over LLM.
	Oracle ports.Oracle
	// Runner replaces the configured artifact runner.
	Runner ports.Runner
}

// circuitMetricsProvider is implemented by collectors that can also observe
// the oracle circuit breaker.
type circuitMetricsProvider interface {
	CircuitBreaker(provider string) llm.CircuitBreakerMetrics
}

// Build validates cfg and assembles an Evaluator. Callers must Close the
// Evaluator when done.
func Build(ctx context.Context, cfg Config, deps Dependencies) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	oracle, err := buildOracle(ctx, cfg.Oracle, deps)
	if err != nil {
		return nil, err
	}

	runner, closer, err := buildRunner(cfg.Runner, deps)
	if err != nil {
		return nil, err
	}

	var extractOpts []extractor.Option
	var aggregateOpts []units.SampleAggregatorOption
	if deps.Metrics != nil {
		extractOpts = append(extractOpts, extractor.WithMetrics(deps.Metrics))
		aggregateOpts = append(aggregateOpts, units.WithMetrics(deps.Metrics))
	}
	if deps.Observer != nil {
		aggregateOpts = append(aggregateOpts, units.WithObserver(deps.Observer))
	}

	ex, err := extractor.New(extractor.Config{EntryPoint: cfg.Runner.EntryPoint}, runner, extractOpts...)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	scorer, err := units.NewCompositeScorerUnit("composite-scorer")
	if err != nil {
		return nil, err
	}
	parser, err := units.NewResponseParserUnit("response-parser",
		units.ResponseParserConfig{MaxLoggedResponse: units.DefaultLoggedResponseChars}, scorer)
	if err != nil {
		return nil, err
	}
	aggregator, err := units.NewSampleAggregatorUnit("sample-aggregator",
		units.SampleAggregatorConfig{SampleDelay: cfg.Evaluation.SampleDelay, MaxSamples: maxSamples},
		oracle, parser, aggregateOpts...)
	if err != nil {
		return nil, err
	}
	normalizer, err := units.NewFitnessNormalizerUnit("fitness-normalizer")
	if err != nil {
		return nil, err
	}

	ev, err := NewEvaluator(EvaluatorConfig{
		Samples: cfg.Evaluation.Samples,
		Timeout: cfg.Evaluation.Timeout,
	}, ex, aggregator, normalizer, deps.Observer)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		ev.closers = append(ev.closers, closer)
	}
	return ev, nil
}

// buildOracle returns the critique client for cfg. A provider that cannot
// be constructed, for example because its API key is missing, yields an
// oracle whose every critique fails as unavailable, so evaluations still
// complete with annotated fallback samples.
func buildOracle(ctx context.Context, cfg OracleConfig, deps Dependencies) (ports.Oracle, error) {
	if deps.Oracle != nil {
		return deps.Oracle, nil
	}

	options := critic.DefaultOptions()
	options.Temperature = cfg.Temperature
	options.MaxTokens = cfg.MaxTokens

	client := deps.LLM
	if client == nil {
		c, err := providerClient(cfg, deps.Metrics)
		if err != nil {
			clog.FromContext(ctx).With("provider", cfg.Provider).Warnf("oracle unavailable: %v", err)
			return critic.Unavailable(cfg.Provider, err), nil
		}
		client = c
	}

	oracle, err := critic.NewClient(client, options, critic.DefaultRubric())
	if err != nil {
		return nil, fmt.Errorf("critic: %w", err)
	}
	return oracle, nil
}

// providerClient builds the provider transport with the middleware chain,
// outermost first: tracing, metrics, circuit breaker, rate limiter.
func providerClient(cfg OracleConfig, metrics ports.MetricsCollector) (*llm.Client, error) {
	middleware := []llm.Middleware{llm.TracingMiddleware(tracingService)}
	if metrics != nil {
		middleware = append(middleware, llm.MetricsMiddleware(cfg.Provider, metrics))
	}
	if cfg.CircuitFailures > 0 {
		var cbMetrics llm.CircuitBreakerMetrics
		if p, ok := metrics.(circuitMetricsProvider); ok {
			cbMetrics = p.CircuitBreaker(cfg.Provider)
		}
		middleware = append(middleware,
			llm.CircuitBreakerMiddlewareWithMetrics(cfg.CircuitFailures, cfg.CircuitCooldown, cbMetrics))
	}
	if cfg.RateLimit > 0 {
		middleware = append(middleware, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit), cfg.Burst))
	}

	providers := llm.DefaultProviders()
	pc := providers[cfg.Provider]
	if cfg.Binary != "" {
		pc.Binary = cfg.Binary
	}
	if cfg.BaseURL != "" {
		pc.BaseURL = cfg.BaseURL
	}
	pc.Middleware = middleware
	providers[cfg.Provider] = pc

	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:       providers,
		DefaultProvider: cfg.Provider,
		DefaultTimeout:  cfg.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return registry.GetClient(cfg.Spec())
}

func buildRunner(cfg RunnerConfig, deps Dependencies) (ports.Runner, io.Closer, error) {
	if deps.Runner != nil {
		return deps.Runner, nil, nil
	}

	switch cfg.Kind {
	case RunnerDocker:
		r, err := extractor.NewDockerRunner(cfg.DockerConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("docker runner: %w", err)
		}
		return r, r, nil
	default:
		r, err := extractor.NewSubprocessRunner(cfg.SubprocessConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("subprocess runner: %w", err)
		}
		return r, nil, nil
	}
}
