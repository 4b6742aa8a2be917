package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/ahrav/go-amour/infrastructure/units"
	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

// ArtifactExtractor turns an artifact path into the text to be judged. It
// never fails; problems are reported on the Extraction.
type ArtifactExtractor interface {
	Extract(ctx context.Context, path string) domain.Extraction
}

// Evaluator runs the full pipeline for one artifact: extraction, N
// critique samples and normalization into a FitnessResult.
type Evaluator struct {
	extractor  ArtifactExtractor
	aggregator *units.SampleAggregatorUnit
	normalizer *units.FitnessNormalizerUnit
	observer   ports.EvaluationObserver
	samples    int
	timeout    time.Duration
	closers    []io.Closer
}

// EvaluatorConfig holds the per-evaluation settings of an Evaluator.
type EvaluatorConfig struct {
	// Samples is the default number of critiques per evaluation.
	Samples int `validate:"min=1,max=100"`
	// Timeout bounds one evaluation. Zero disables it.
	Timeout time.Duration `validate:"min=0s"`
}

// NewEvaluator assembles an Evaluator from its stages. A nil observer
// disables lifecycle callbacks.
func NewEvaluator(
	config EvaluatorConfig,
	extractor ArtifactExtractor,
	aggregator *units.SampleAggregatorUnit,
	normalizer *units.FitnessNormalizerUnit,
	observer ports.EvaluationObserver,
) (*Evaluator, error) {
	if extractor == nil || aggregator == nil || normalizer == nil {
		return nil, errors.New("extractor, aggregator and normalizer are required")
	}
	if err := configValidator.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	for _, stage := range []ports.Stage{aggregator, normalizer} {
		if err := stage.Validate(); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &Evaluator{
		extractor:  extractor,
		aggregator: aggregator,
		normalizer: normalizer,
		observer:   observer,
		samples:    config.Samples,
		timeout:    config.Timeout,
	}, nil
}

// Evaluate scores the artifact at path with the configured sample count.
// It never returns an error: an unreadable artifact, an exceeded timeout or
// a panic anywhere in the pipeline yields a zero-fitness result whose notes
// name the cause.
func (e *Evaluator) Evaluate(ctx context.Context, path string) domain.FitnessResult {
	return e.EvaluateN(ctx, path, e.samples)
}

// EvaluateN is Evaluate with an explicit sample count.
func (e *Evaluator) EvaluateN(ctx context.Context, path string, samples int) (result domain.FitnessResult) {
	start := time.Now()
	log := clog.FromContext(ctx).With("evaluation_id", uuid.NewString(), "artifact", path)
	ctx = clog.WithLogger(ctx, log)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ctx = e.observer.Started(ctx, domain.Artifact{Path: path})

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
			log.Errorf("%v", err)
			result = e.normalizer.Failed(err)
		}
		e.observer.Finished(ctx, result, time.Since(start), err)
	}()

	result, err = e.evaluate(ctx, path, samples)
	if err != nil {
		log.Errorf("evaluation failed: %v", err)
		return e.normalizer.Failed(err)
	}

	log.With("combined_score", result.CombinedScore).Infof("%s", result.EvaluationNotes)
	return result
}

func (e *Evaluator) evaluate(ctx context.Context, path string, samples int) (domain.FitnessResult, error) {
	x := e.extractor.Extract(ctx, path)
	e.observer.Extracted(ctx, x)

	if errors.Is(x.Err, domain.ErrArtifactUnreadable) {
		return domain.FitnessResult{}, x.Err
	}
	if x.Err != nil {
		clog.FromContext(ctx).Warnf("judging raw artifact content: %v", x.Err)
	}

	agg, err := e.aggregator.Aggregate(ctx, x.Text, samples)
	if err != nil {
		return domain.FitnessResult{}, err
	}

	return e.normalizer.Normalize(agg, x.Text), nil
}

// Close releases resources held by the pipeline, such as a docker client.
func (e *Evaluator) Close() error {
	var errs []error
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

type nopObserver struct{}

func (nopObserver) Started(ctx context.Context, _ domain.Artifact) context.Context { return ctx }

func (nopObserver) Extracted(context.Context, domain.Extraction) {}

func (nopObserver) Sampled(context.Context, int, domain.ScoreRecord) {}

func (nopObserver) Finished(context.Context, domain.FitnessResult, time.Duration, error) {}
