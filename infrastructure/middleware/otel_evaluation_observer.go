package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.EvaluationObserver = (*OTelEvaluationObserver)(nil)

// TracerName is the instrumentation name used when no tracer is supplied.
const TracerName = "github.com/ahrav/go-amour/evaluator"

// OTelEvaluationObserver traces each evaluation as one OpenTelemetry span
// with an event per extraction and per sample, and reports fitness and
// latency to an optional metrics collector.
type OTelEvaluationObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewOTelEvaluationObserver creates an observer. A nil tracer uses the
// global tracer provider; a nil metrics collector disables metrics.
func NewOTelEvaluationObserver(tracer trace.Tracer, metrics ports.MetricsCollector) *OTelEvaluationObserver {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &OTelEvaluationObserver{tracer: tracer, metrics: metrics}
}

// Started implements ports.EvaluationObserver. The returned context carries
// the evaluation span.
func (o *OTelEvaluationObserver) Started(ctx context.Context, artifact domain.Artifact) context.Context {
	ctx, _ = o.tracer.Start(ctx, "Evaluator.Evaluate", trace.WithAttributes(
		attribute.String("artifact.path", artifact.Path),
	))
	return ctx
}

// Extracted implements ports.EvaluationObserver.
func (o *OTelEvaluationObserver) Extracted(ctx context.Context, x domain.Extraction) {
	span := trace.SpanFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("mode", string(x.Mode)),
		attribute.Int("text_length", len(x.Text)),
	}
	if x.Err != nil {
		attrs = append(attrs, attribute.String("error", x.Err.Error()))
	}
	span.AddEvent("artifact.extracted", trace.WithAttributes(attrs...))
	span.SetAttributes(attribute.String("extraction.mode", string(x.Mode)))
}

// Sampled implements ports.EvaluationObserver.
func (o *OTelEvaluationObserver) Sampled(ctx context.Context, index int, rec domain.ScoreRecord) {
	attrs := []attribute.KeyValue{
		attribute.Int("index", index),
		attribute.Float64("overall_score", rec.OverallScore),
	}
	if rec.Failure != nil {
		attrs = append(attrs,
			attribute.String("failure.kind", string(rec.Failure.Kind)),
			attribute.String("failure.message", rec.Failure.Message),
		)
	}
	trace.SpanFromContext(ctx).AddEvent("sample.scored", trace.WithAttributes(attrs...))
}

// Finished implements ports.EvaluationObserver. It ends the span started by
// Started.
func (o *OTelEvaluationObserver) Finished(
	ctx context.Context,
	result domain.FitnessResult,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.Float64("fitness.combined_score", result.CombinedScore),
		attribute.Float64("fitness.beauty_score", result.BeautyScore),
	)
	if agg := result.Evaluation; agg != nil {
		span.SetAttributes(
			attribute.Int("samples", len(agg.Samples)),
			attribute.Int("fallbacks", agg.FallbackCount),
			attribute.Float64("score_variance", agg.ScoreVariance),
		)
	}

	status := "ok"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	if o.metrics != nil {
		labels := map[string]string{"status": status}
		o.metrics.RecordHistogram(ports.MetricFitness, result.CombinedScore, labels)
		o.metrics.RecordLatency(ports.MetricEvaluationLatency, elapsed, labels)
	}
}
