package domain

import (
	"math"
)

// Criterion names a single rubric dimension the oracle grades.
type Criterion string

// The four rubric criteria, in the order the oracle is asked to report them.
const (
	CriterionEmotionalAuthenticity Criterion = "emotional_authenticity"
	CriterionLiteraryCraft         Criterion = "literary_craft"
	CriterionImpactMemorability    Criterion = "impact_memorability"
	CriterionOriginality           Criterion = "originality"
)

// Fixed rubric weights. They sum to 1.0 and are intentionally not
// configurable: fitness values from different runs must stay comparable.
const (
	WeightEmotionalAuthenticity = 0.35
	WeightLiteraryCraft         = 0.30
	WeightImpactMemorability    = 0.25
	WeightOriginality           = 0.10
)

// Score bounds shared by every criterion and the overall score.
const (
	MinScore = 0.0
	MaxScore = 100.0
	// NeutralScore is the midpoint assigned to every field of a fallback record.
	NeutralScore = 50.0
)

// Weights returns the rubric weights keyed by criterion.
func Weights() map[Criterion]float64 {
	return map[Criterion]float64{
		CriterionEmotionalAuthenticity: WeightEmotionalAuthenticity,
		CriterionLiteraryCraft:         WeightLiteraryCraft,
		CriterionImpactMemorability:    WeightImpactMemorability,
		CriterionOriginality:           WeightOriginality,
	}
}

// FailureKind classifies why a ScoreRecord is a neutral fallback rather than
// a genuine grading.
type FailureKind string

// Failure kinds recorded on fallback score records.
const (
	FailureParse              FailureKind = "parse_failure"
	FailureOracleUnavailable  FailureKind = "oracle_unavailable"
	FailureOracleProcessError FailureKind = "oracle_process_error"
	FailureOracleGenericError FailureKind = "oracle_generic_error"
)

// Failure is the annotation carried by a fallback ScoreRecord.
// Consumers must check for its presence instead of inferring failure from
// a score of 50.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// ScoreRecord is the structured result of one grading pass.
type ScoreRecord struct {
	EmotionalAuthenticity float64 `json:"emotional_authenticity"`
	LiteraryCraft         float64 `json:"literary_craft"`
	ImpactMemorability    float64 `json:"impact_memorability"`
	Originality           float64 `json:"originality"`
	OverallScore          float64 `json:"overall_score"`

	Strengths       string `json:"strengths"`
	Weaknesses      string `json:"weaknesses"`
	ComparisonNotes string `json:"comparison_notes"`

	// Failure is set only on neutral fallback records.
	Failure *Failure `json:"error,omitempty"`
}

// IsFallback reports whether the record was produced because grading failed.
func (r ScoreRecord) IsFallback() bool { return r.Failure != nil }

// Composite returns the fixed-weight linear combination of the four criteria.
func Composite(r ScoreRecord) float64 {
	return r.EmotionalAuthenticity*WeightEmotionalAuthenticity +
		r.LiteraryCraft*WeightLiteraryCraft +
		r.ImpactMemorability*WeightImpactMemorability +
		r.Originality*WeightOriginality
}

// ClampScore forces v into [MinScore, MaxScore]. NaN maps to MinScore.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}
	return math.Max(MinScore, math.Min(MaxScore, v))
}

// FallbackRecord builds the neutral record used whenever a grading pass
// cannot produce a real score.
func FallbackRecord(kind FailureKind, cause error) ScoreRecord {
	msg := "unknown failure"
	if cause != nil {
		msg = cause.Error()
	}
	return ScoreRecord{
		EmotionalAuthenticity: NeutralScore,
		LiteraryCraft:         NeutralScore,
		ImpactMemorability:    NeutralScore,
		Originality:           NeutralScore,
		OverallScore:          NeutralScore,
		Strengths:             "Could not analyze",
		Weaknesses:            "Could not analyze",
		ComparisonNotes:       "Evaluation failed: " + msg,
		Failure:               &Failure{Kind: kind, Message: msg},
	}
}
