package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-amour/internal/domain"
)

// LLMClient defines the interface for interacting with Large Language
// Model providers.
// Implementations should handle provider-specific details like authentication,
// request formatting, and response parsing.
type LLMClient interface {
	// Complete sends a completion request to the LLM provider.
	// It returns the generated text and any error encountered.
	// Implementations must not retry; each call is exactly one request.
	//
	// The options map allows flexibility for different providers without
	// changing the interface. Common options include:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string (system prompt)
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens calculates the approximate token count for a given text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier being used by this client.
	GetModel() string
}

// Oracle produces a free-text critique of a piece of text. The response is
// expected, but not guaranteed, to contain a JSON score payload.
//
// Every error returned by Critique is a *domain.OracleError so callers can
// classify it with errors.Is against the domain oracle sentinels.
type Oracle interface {
	Critique(ctx context.Context, text domain.JudgedText) (string, error)
}

// Runner executes an artifact's zero-argument entry point in an isolated,
// disposable environment and returns whatever it produced on standard
// output. Implementations must release every resource they create before
// returning, including on cancellation.
type Runner interface {
	Run(ctx context.Context, artifact domain.Artifact, entry string) (string, error)
}

// EvaluationObserver receives lifecycle callbacks for one evaluation.
// Started returns a context carrying whatever state the observer needs to
// correlate the later callbacks, such as a trace span.
type EvaluationObserver interface {
	Started(ctx context.Context, artifact domain.Artifact) context.Context
	Extracted(ctx context.Context, extraction domain.Extraction)
	Sampled(ctx context.Context, index int, record domain.ScoreRecord)
	Finished(ctx context.Context, result domain.FitnessResult, elapsed time.Duration, err error)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
