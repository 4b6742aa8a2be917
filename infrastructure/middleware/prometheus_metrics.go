// Package middleware provides cross-cutting concerns for the evaluation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-amour/infrastructure/llm"
	"github.com/ahrav/go-amour/internal/ports"
)

// Metric names owned by this collector rather than by an emitting component.
const (
	metricCircuitEvents = "amour_oracle_circuit_events_total"
	metricOperations    = "amour_operations_total"
	metricOperationTime = "amour_operation_duration_seconds"
	metricState         = "amour_state"
)

const unknownLabel = "unknown"

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// Known metric names from the ports package are routed to dedicated vectors;
// anything else lands in the generic operation vectors.
type PrometheusMetrics struct {
	oracleRequests *prometheus.CounterVec
	oracleLatency  *prometheus.HistogramVec
	oracleTokens   *prometheus.CounterVec
	circuitState   *prometheus.GaugeVec
	circuitEvents  *prometheus.CounterVec

	samples     *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	extractions *prometheus.CounterVec
	fitness     *prometheus.HistogramVec
	evaluations *prometheus.HistogramVec

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics and registers its vectors
// with reg. A nil reg registers with the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Oracle metrics.
		oracleRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricOracleRequests,
				Help: "Total number of oracle requests.",
			},
			[]string{"provider", "model", "status"},
		),
		oracleLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    ports.MetricOracleLatency,
				Help:    "Oracle request latency.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"provider", "model", "status"},
		),
		oracleTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricOracleTokens,
				Help: "Total number of tokens exchanged with the oracle.",
			},
			[]string{"provider", "model", "token_type"},
		),
		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: ports.MetricCircuitState,
				Help: "Oracle circuit breaker state (0 closed, 1 open, 2 half-open).",
			},
			[]string{"provider"},
		),
		circuitEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricCircuitEvents,
				Help: "Oracle circuit breaker outcomes.",
			},
			[]string{"provider", "event"},
		),

		// Evaluation pipeline metrics.
		samples: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricSamples,
				Help: "Total number of grading samples by outcome.",
			},
			[]string{"unit", "outcome"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricFallbacks,
				Help: "Total number of fallback samples by failure kind.",
			},
			[]string{"unit", "kind"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: ports.MetricExtractions,
				Help: "Total number of artifact extractions by mode.",
			},
			[]string{"mode"},
		),
		fitness: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    ports.MetricFitness,
				Help:    "Combined fitness of finished evaluations.",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"status"},
		),
		evaluations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    ports.MetricEvaluationLatency,
				Help:    "End-to-end evaluation time.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"status"},
		),

		// Generic operation metrics.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricOperationTime,
				Help:    "Execution time of named operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "unit"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricOperations,
				Help: "Total number of named operations.",
			},
			[]string{"operation", "unit"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricState,
				Help: "Current values of named state gauges.",
			},
			[]string{"metric", "unit"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabel
}

// RecordLatency implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case ports.MetricOracleLatency, ports.MetricEvaluationLatency:
		pm.RecordHistogram(operation, duration.Seconds(), labels)
	default:
		pm.operationLatency.WithLabelValues(operation, label(labels, "unit")).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricOracleRequests:
		pm.oracleRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case ports.MetricOracleTokens:
		pm.oracleTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	case ports.MetricSamples:
		pm.samples.WithLabelValues(label(labels, "unit"), label(labels, "outcome")).Add(value)
	case ports.MetricFallbacks:
		pm.fallbacks.WithLabelValues(label(labels, "unit"), label(labels, "kind")).Add(value)
	case ports.MetricExtractions:
		pm.extractions.WithLabelValues(label(labels, "mode")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, label(labels, "unit")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricCircuitState:
		pm.circuitState.WithLabelValues(label(labels, "provider")).Set(value)
	default:
		pm.stateGauges.WithLabelValues(metric, label(labels, "unit")).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricOracleLatency:
		pm.oracleLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
	case ports.MetricFitness:
		pm.fitness.WithLabelValues(label(labels, "status")).Observe(value)
	case ports.MetricEvaluationLatency:
		pm.evaluations.WithLabelValues(label(labels, "status")).Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric, label(labels, "unit")).Observe(value)
	}
}

// CircuitBreaker returns circuit breaker metrics for provider backed by this
// collector.
func (pm *PrometheusMetrics) CircuitBreaker(provider string) llm.CircuitBreakerMetrics {
	return &circuitMetrics{pm: pm, provider: provider}
}

type circuitMetrics struct {
	pm       *PrometheusMetrics
	provider string
}

func (c *circuitMetrics) RecordState(state llm.CircuitBreakerState) {
	c.pm.circuitState.WithLabelValues(c.provider).Set(float64(state))
}

func (c *circuitMetrics) RecordTrip() {
	c.pm.circuitEvents.WithLabelValues(c.provider, "rejected").Inc()
}

func (c *circuitMetrics) RecordSuccess() {
	c.pm.circuitEvents.WithLabelValues(c.provider, "success").Inc()
}

func (c *circuitMetrics) RecordFailure() {
	c.pm.circuitEvents.WithLabelValues(c.provider, "failure").Inc()
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
