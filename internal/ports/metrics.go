package ports

// Metric names shared by the components that emit them and the collectors
// that register them.
const (
	// MetricOracleRequests counts oracle requests by provider, model and status.
	MetricOracleRequests = "amour_oracle_requests_total"
	// MetricOracleLatency observes oracle request latency in seconds.
	MetricOracleLatency = "amour_oracle_latency_seconds"
	// MetricOracleTokens counts oracle tokens by provider, model and token_type.
	MetricOracleTokens = "amour_oracle_tokens_total"
	// MetricCircuitState reports the oracle circuit breaker state
	// (0 closed, 1 open, 2 half-open).
	MetricCircuitState = "amour_oracle_circuit_state"

	// MetricSamples counts grading samples by outcome ("scored" or "fallback").
	MetricSamples = "amour_samples_total"
	// MetricFallbacks counts fallback samples by failure kind.
	MetricFallbacks = "amour_fallbacks_total"
	// MetricExtractions counts artifact extractions by mode.
	MetricExtractions = "amour_extractions_total"
	// MetricFitness observes the combined fitness of finished evaluations.
	MetricFitness = "amour_fitness"
	// MetricEvaluationLatency observes end-to-end evaluation time in seconds.
	MetricEvaluationLatency = "amour_evaluation_duration_seconds"
)
