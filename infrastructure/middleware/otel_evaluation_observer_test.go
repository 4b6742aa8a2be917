package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

type histogramCall struct {
	metric string
	value  float64
	status string
}

type histogramCollector struct {
	calls []histogramCall
}

func (c *histogramCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	c.RecordHistogram(op, d.Seconds(), labels)
}

func (c *histogramCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	c.calls = append(c.calls, histogramCall{metric: metric, value: value, status: labels["status"]})
}

func (c *histogramCollector) RecordCounter(string, float64, map[string]string) {}
func (c *histogramCollector) RecordGauge(string, float64, map[string]string)   {}

func newRecordingObserver(t *testing.T, metrics ports.MetricsCollector) (*OTelEvaluationObserver, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEvaluationObserver(tp.Tracer("test"), metrics), recorder
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestOTelEvaluationObserver_Success(t *testing.T) {
	// Given
	metrics := &histogramCollector{}
	obs, recorder := newRecordingObserver(t, metrics)
	scored := domain.ScoreRecord{OverallScore: 74}
	fallback := domain.FallbackRecord(domain.FailureParse, domain.ErrParseFailure)
	agg, err := domain.Summarize([]domain.ScoreRecord{scored, fallback})
	require.NoError(t, err)
	result := domain.FitnessResult{CombinedScore: 0.62, BeautyScore: 62, Evaluation: &agg}

	// When a full evaluation lifecycle is observed
	ctx := obs.Started(context.Background(), domain.Artifact{Path: "letters/a.py"})
	obs.Extracted(ctx, domain.Extraction{Text: "Dear you", Mode: domain.ExtractionExecuted})
	obs.Sampled(ctx, 0, scored)
	obs.Sampled(ctx, 1, fallback)
	obs.Finished(ctx, result, 2*time.Second, nil)

	// Then exactly one span carries the lifecycle
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "Evaluator.Evaluate", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := attrMap(span.Attributes())
	assert.Equal(t, "letters/a.py", attrs["artifact.path"].AsString())
	assert.Equal(t, "executed", attrs["extraction.mode"].AsString())
	assert.Equal(t, 0.62, attrs["fitness.combined_score"].AsFloat64())
	assert.Equal(t, int64(2), attrs["samples"].AsInt64())
	assert.Equal(t, int64(1), attrs["fallbacks"].AsInt64())

	events := span.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "artifact.extracted", events[0].Name)
	assert.Equal(t, "sample.scored", events[1].Name)
	assert.Equal(t, "parse_failure", attrMap(events[2].Attributes)["failure.kind"].AsString())

	assert.Equal(t, []histogramCall{
		{metric: ports.MetricFitness, value: 0.62, status: "ok"},
		{metric: ports.MetricEvaluationLatency, value: 2, status: "ok"},
	}, metrics.calls)
}

func TestOTelEvaluationObserver_Failure(t *testing.T) {
	metrics := &histogramCollector{}
	obs, recorder := newRecordingObserver(t, metrics)
	cause := errors.New("evaluation timed out")

	ctx := obs.Started(context.Background(), domain.Artifact{Path: "slow.py"})
	obs.Extracted(ctx, domain.Extraction{
		Text: "raw",
		Mode: domain.ExtractionFallback,
		Err:  domain.NewExtractionError("slow.py", "run", errors.New("exit status 1")),
	})
	obs.Finished(ctx, domain.FitnessResult{EvaluationNotes: "Evaluation failed: evaluation timed out"}, time.Minute, cause)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "evaluation timed out", spans[0].Status().Description)
	assert.Contains(t, attrMap(spans[0].Events()[0].Attributes)["error"].AsString(), "exit status 1")
	require.Len(t, metrics.calls, 2)
	assert.Equal(t, "failed", metrics.calls[0].status)
	assert.Zero(t, metrics.calls[0].value)
}

func TestOTelEvaluationObserver_Defaults(t *testing.T) {
	obs := NewOTelEvaluationObserver(nil, nil)

	ctx := obs.Started(context.Background(), domain.Artifact{})
	assert.NotPanics(t, func() {
		obs.Sampled(ctx, 0, domain.ScoreRecord{})
		obs.Finished(ctx, domain.FitnessResult{}, 0, nil)
	})
}
