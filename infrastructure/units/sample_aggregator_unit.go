package units

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Stage = (*SampleAggregatorUnit)(nil)

// DefaultSampleDelay separates successive oracle invocations.
const DefaultSampleDelay = time.Second

// Sample outcomes reported on MetricSamples.
const (
	OutcomeScored   = "scored"
	OutcomeFallback = "fallback"
)

// SampleAggregatorConfig defines the configuration parameters for the
// SampleAggregatorUnit.
type SampleAggregatorConfig struct {
	// SampleDelay is the minimum pause between two oracle invocations.
	// Zero disables the pause.
	SampleDelay time.Duration `yaml:"sample_delay" json:"sample_delay" validate:"min=0s,max=1m"`

	// MaxSamples bounds the sample count a single Aggregate call accepts.
	MaxSamples int `yaml:"max_samples" json:"max_samples" validate:"min=1,max=100"`
}

// DefaultSampleAggregatorConfig returns the defaults used by the CLI.
func DefaultSampleAggregatorConfig() SampleAggregatorConfig {
	return SampleAggregatorConfig{SampleDelay: DefaultSampleDelay, MaxSamples: 10}
}

// SampleAggregatorOption configures optional collaborators of a
// SampleAggregatorUnit.
type SampleAggregatorOption func(*SampleAggregatorUnit)

// WithMetrics records per-sample counters on collector.
func WithMetrics(collector ports.MetricsCollector) SampleAggregatorOption {
	return func(u *SampleAggregatorUnit) { u.metrics = collector }
}

// WithObserver forwards every sample to observer.
func WithObserver(observer ports.EvaluationObserver) SampleAggregatorOption {
	return func(u *SampleAggregatorUnit) { u.observer = observer }
}

// SampleAggregatorUnit grades the same text N times and folds the results
// into an AggregateRecord. Invocations are strictly sequential and
// separated by SampleDelay; failed samples contribute their neutral
// fallback values instead of being discarded.
type SampleAggregatorUnit struct {
	name     string
	config   SampleAggregatorConfig
	oracle   ports.Oracle
	parser   *ResponseParserUnit
	metrics  ports.MetricsCollector
	observer ports.EvaluationObserver

	// after is replaced in tests to observe delays without sleeping.
	after func(time.Duration) <-chan time.Time
}

// NewSampleAggregatorUnit creates a SampleAggregatorUnit that critiques
// through oracle and interprets responses with parser.
func NewSampleAggregatorUnit(
	name string,
	config SampleAggregatorConfig,
	oracle ports.Oracle,
	parser *ResponseParserUnit,
	opts ...SampleAggregatorOption,
) (*SampleAggregatorUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if oracle == nil {
		return nil, fmt.Errorf("unit %s: %w", name, ErrNilOracle)
	}
	if parser == nil {
		return nil, fmt.Errorf("unit %s: response parser: %w", name, ErrNilDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	u := &SampleAggregatorUnit{
		name:   name,
		config: config,
		oracle: oracle,
		parser: parser,
		after:  time.After,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SampleAggregatorUnit) Name() string { return u.name }

// Validate checks the configuration and the parser dependency.
func (u *SampleAggregatorUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("unit %s: configuration validation failed: %w", u.name, err)
	}
	if u.oracle == nil {
		return fmt.Errorf("unit %s: %w", u.name, ErrNilOracle)
	}
	if u.parser == nil {
		return fmt.Errorf("unit %s: response parser: %w", u.name, ErrNilDependency)
	}
	return u.parser.Validate()
}

// Aggregate critiques text n times and summarizes the samples.
//
// Oracle and parse failures never surface as errors; they become annotated
// fallback samples. An error is returned only for an invalid n or when ctx
// ends before every sample is collected, in which case no partial record
// is produced.
func (u *SampleAggregatorUnit) Aggregate(ctx context.Context, text domain.JudgedText, n int) (domain.AggregateRecord, error) {
	if n < 1 || n > u.config.MaxSamples {
		return domain.AggregateRecord{}, fmt.Errorf("unit %s: %w: got %d, want 1..%d",
			u.name, ErrInvalidSampleCount, n, u.config.MaxSamples)
	}

	log := clog.FromContext(ctx).With("unit", u.name, "samples", n)
	samples := make([]domain.ScoreRecord, 0, n)

	for i := range n {
		if i > 0 {
			if err := u.wait(ctx); err != nil {
				return domain.AggregateRecord{}, fmt.Errorf("unit %s: waiting before sample %d: %w", u.name, i+1, err)
			}
		}

		raw, oracleErr := u.oracle.Critique(ctx, text)
		if err := ctx.Err(); err != nil {
			return domain.AggregateRecord{}, fmt.Errorf("unit %s: sample %d: %w", u.name, i+1, err)
		}

		rec := u.parser.Interpret(ctx, raw, oracleErr)
		samples = append(samples, rec)
		u.record(ctx, log, i, rec)
	}

	agg, err := domain.Summarize(samples)
	if err != nil {
		return domain.AggregateRecord{}, fmt.Errorf("unit %s: %w", u.name, err)
	}

	if n > 1 {
		log.With("overall", agg.OverallScore, "variance", agg.ScoreVariance, "fallbacks", agg.FallbackCount).
			Infof("aggregated %d samples", n)
	}
	return agg, nil
}

func (u *SampleAggregatorUnit) wait(ctx context.Context) error {
	if u.config.SampleDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-u.after(u.config.SampleDelay):
		return nil
	}
}

func (u *SampleAggregatorUnit) record(ctx context.Context, log *clog.Logger, index int, rec domain.ScoreRecord) {
	outcome := OutcomeScored
	if rec.IsFallback() {
		outcome = OutcomeFallback
		log.With("sample", index+1, "failure_kind", string(rec.Failure.Kind)).
			Infof("sample %d fell back to neutral score", index+1)
	} else {
		log.With("sample", index+1, "overall", rec.OverallScore).
			Infof("sample %d scored %.1f", index+1, rec.OverallScore)
	}

	if u.metrics != nil {
		u.metrics.RecordCounter(ports.MetricSamples, 1, map[string]string{"unit": u.name, "outcome": outcome})
		if rec.IsFallback() {
			u.metrics.RecordCounter(ports.MetricFallbacks, 1, map[string]string{"unit": u.name, "kind": string(rec.Failure.Kind)})
		}
	}
	if u.observer != nil {
		u.observer.Sampled(ctx, index, rec)
	}
}
