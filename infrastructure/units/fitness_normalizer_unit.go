package units

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Stage = (*FitnessNormalizerUnit)(nil)

// FitnessNormalizerUnit maps aggregated grades onto the fitness contract
// consumed by the outer search loop.
type FitnessNormalizerUnit struct {
	name string
}

// NewFitnessNormalizerUnit creates a FitnessNormalizerUnit.
func NewFitnessNormalizerUnit(name string) (*FitnessNormalizerUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &FitnessNormalizerUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *FitnessNormalizerUnit) Name() string { return u.name }

// Validate always succeeds; the unit has no configuration.
func (u *FitnessNormalizerUnit) Validate() error { return nil }

// Normalize builds the fitness result for an aggregate. The aggregate is
// attached as the diagnostic payload.
func (u *FitnessNormalizerUnit) Normalize(agg domain.AggregateRecord, text domain.JudgedText) domain.FitnessResult {
	beauty := domain.ClampScore(agg.OverallScore)

	var notes strings.Builder
	fmt.Fprintf(&notes, "Scored %.1f/100 on love letter quality scale", beauty)
	if n := len(agg.Samples); n > 0 {
		fmt.Fprintf(&notes, " (%d %s, variance %.1f)", n, plural(n, "sample"), agg.ScoreVariance)
	}
	if agg.FallbackCount > 0 {
		fmt.Fprintf(&notes, ", %d fallback %s", agg.FallbackCount, plural(agg.FallbackCount, "sample"))
	}

	return domain.FitnessResult{
		CombinedScore:   beauty / domain.MaxScore,
		BeautyScore:     beauty,
		LetterText:      text.String(),
		EvaluationNotes: notes.String(),
		Evaluation:      &agg,
	}
}

// NormalizeRecord builds the fitness result for a single grading pass.
func (u *FitnessNormalizerUnit) NormalizeRecord(rec domain.ScoreRecord, text domain.JudgedText) domain.FitnessResult {
	agg, err := domain.Summarize([]domain.ScoreRecord{rec})
	if err != nil {
		return u.Failed(err)
	}
	return u.Normalize(agg, text)
}

// Failed builds the zero-fitness result returned when no grade could be
// produced at all.
func (u *FitnessNormalizerUnit) Failed(cause error) domain.FitnessResult {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return domain.FitnessResult{
		EvaluationNotes: "Evaluation failed: " + msg,
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
