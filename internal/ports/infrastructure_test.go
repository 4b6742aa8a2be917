package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-amour/internal/domain"
)

// mockLLMClient implements LLMClient interface
type mockLLMClient struct{ model string }

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return `{"overall_score": 42}`, nil
}

func (m *mockLLMClient) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }

func (m *mockLLMClient) GetModel() string { return m.model }

// echoOracle implements Oracle by wrapping the text it receives.
type echoOracle struct{}

func (echoOracle) Critique(ctx context.Context, text domain.JudgedText) (string, error) {
	return "critique of " + text.String(), nil
}

// staticRunner implements Runner with canned output.
type staticRunner struct{ out string }

func (r staticRunner) Run(ctx context.Context, artifact domain.Artifact, entry string) (string, error) {
	return r.out, nil
}

// nopObserver implements EvaluationObserver.
type nopObserver struct{ finished int }

func (o *nopObserver) Started(ctx context.Context, _ domain.Artifact) context.Context { return ctx }
func (o *nopObserver) Extracted(context.Context, domain.Extraction)                   {}
func (o *nopObserver) Sampled(context.Context, int, domain.ScoreRecord)               {}
func (o *nopObserver) Finished(context.Context, domain.FitnessResult, time.Duration, error) {
	o.finished++
}

// mockMetricsCollector implements MetricsCollector interface
type mockMetricsCollector struct {
	latencies  []time.Duration
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.latencies = append(m.latencies, duration)
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.counters[metric] += value
}

func (m *mockMetricsCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	m.gauges[metric] = value
}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.histograms[metric] = append(m.histograms[metric], value)
}

func TestInterfaces_Implementation(t *testing.T) {
	var _ LLMClient = (*mockLLMClient)(nil)
	var _ Oracle = echoOracle{}
	var _ Runner = staticRunner{}
	var _ EvaluationObserver = (*nopObserver)(nil)
	var _ MetricsCollector = (*mockMetricsCollector)(nil)

	ctx := context.Background()

	llm := &mockLLMClient{model: "test-model"}
	assert.Equal(t, "test-model", llm.GetModel(), "GetModel() mismatch")
	response, err := llm.Complete(ctx, "test prompt", nil)
	require.NoError(t, err)
	assert.Contains(t, response, "overall_score")

	critique, err := echoOracle{}.Critique(ctx, "dear you")
	require.NoError(t, err)
	assert.Equal(t, "critique of dear you", critique)

	out, err := staticRunner{out: "letter"}.Run(ctx, domain.Artifact{Path: "x.py"}, "generate_love_letter")
	require.NoError(t, err)
	assert.Equal(t, "letter", out)

	obs := &nopObserver{}
	obsCtx := obs.Started(ctx, domain.Artifact{})
	obs.Finished(obsCtx, domain.FitnessResult{}, time.Second, nil)
	assert.Equal(t, 1, obs.finished)
}

func TestMetricsCollector_Recording(t *testing.T) {
	metrics := newMockMetricsCollector()
	labels := map[string]string{"stage": "test"}

	metrics.RecordLatency("oracle", 100*time.Millisecond, labels)
	assert.Len(t, metrics.latencies, 1)

	metrics.RecordCounter("samples", 1, labels)
	metrics.RecordCounter("samples", 2, labels)
	assert.Equal(t, float64(3), metrics.counters["samples"], "RecordCounter() sum mismatch")

	metrics.RecordGauge("fitness", 0.7, labels)
	metrics.RecordGauge("fitness", 0.5, labels)
	assert.Equal(t, 0.5, metrics.gauges["fitness"], "RecordGauge() value mismatch")

	metrics.RecordHistogram("overall", 64, labels)
	metrics.RecordHistogram("overall", 71, labels)
	assert.Len(t, metrics.histograms["overall"], 2)
}
