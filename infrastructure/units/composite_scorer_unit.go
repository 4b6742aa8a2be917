package units

import (
	"fmt"
	"math"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Stage = (*CompositeScorerUnit)(nil)

// weightTolerance bounds floating drift when checking that the rubric
// weights still sum to one.
const weightTolerance = 1e-9

// CompositeScorerUnit validates and repairs the overall field of a
// ScoreRecord. An oracle-supplied overall is authoritative; only a missing
// overall is computed from the fixed rubric weights.
//
// The unit is stateless and safe for concurrent use.
type CompositeScorerUnit struct {
	name string
}

// NewCompositeScorerUnit creates a CompositeScorerUnit.
func NewCompositeScorerUnit(name string) (*CompositeScorerUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &CompositeScorerUnit{name: name}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *CompositeScorerUnit) Name() string { return u.name }

// Validate checks that the rubric weights form a convex combination.
func (u *CompositeScorerUnit) Validate() error {
	var sum float64
	for criterion, w := range domain.Weights() {
		if w <= 0 {
			return fmt.Errorf("unit %s: weight for %s must be positive, got %v", u.name, criterion, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("unit %s: rubric weights sum to %v, want 1", u.name, sum)
	}
	return nil
}

// Score returns a copy of rec with every numeric field clamped into
// [0,100]. When overallSupplied is false the overall is recomputed from the
// clamped sub-criteria.
func (u *CompositeScorerUnit) Score(rec domain.ScoreRecord, overallSupplied bool) domain.ScoreRecord {
	rec.EmotionalAuthenticity = domain.ClampScore(rec.EmotionalAuthenticity)
	rec.LiteraryCraft = domain.ClampScore(rec.LiteraryCraft)
	rec.ImpactMemorability = domain.ClampScore(rec.ImpactMemorability)
	rec.Originality = domain.ClampScore(rec.Originality)

	if overallSupplied {
		rec.OverallScore = domain.ClampScore(rec.OverallScore)
	} else {
		rec.OverallScore = domain.Composite(rec)
	}

	return rec
}
