package domain

import "slices"

// AggregateRecord summarizes N independent grading passes over the same text.
// Every mean includes fallback samples; a depressed mean or a wide
// ScoreVariance is the health signal for a flaky oracle.
type AggregateRecord struct {
	EmotionalAuthenticity float64 `json:"emotional_authenticity"`
	LiteraryCraft         float64 `json:"literary_craft"`
	ImpactMemorability    float64 `json:"impact_memorability"`
	Originality           float64 `json:"originality"`
	OverallScore          float64 `json:"overall_score"`

	// ScoreVariance is max(overall) - min(overall) across samples. It is a
	// range, not a statistical variance.
	ScoreVariance float64 `json:"score_variance"`

	// FallbackCount is the number of samples that carry a Failure annotation.
	FallbackCount int `json:"fallback_count"`

	// Samples holds the individual records in invocation order.
	Samples []ScoreRecord `json:"individual_evaluations"`
}

// Summarize folds samples into an AggregateRecord.
// It returns ErrNoSamples when samples is empty. The input slice is copied.
func Summarize(samples []ScoreRecord) (AggregateRecord, error) {
	if len(samples) == 0 {
		return AggregateRecord{}, ErrNoSamples
	}

	var agg AggregateRecord
	lo, hi := samples[0].OverallScore, samples[0].OverallScore
	for _, s := range samples {
		agg.EmotionalAuthenticity += s.EmotionalAuthenticity
		agg.LiteraryCraft += s.LiteraryCraft
		agg.ImpactMemorability += s.ImpactMemorability
		agg.Originality += s.Originality
		agg.OverallScore += s.OverallScore

		lo = min(lo, s.OverallScore)
		hi = max(hi, s.OverallScore)
		if s.IsFallback() {
			agg.FallbackCount++
		}
	}

	n := float64(len(samples))
	agg.EmotionalAuthenticity /= n
	agg.LiteraryCraft /= n
	agg.ImpactMemorability /= n
	agg.Originality /= n
	agg.OverallScore /= n
	agg.ScoreVariance = hi - lo
	agg.Samples = slices.Clone(samples)

	return agg, nil
}

// Overalls returns the overall score of each sample in order.
func (a AggregateRecord) Overalls() []float64 {
	out := make([]float64, len(a.Samples))
	for i, s := range a.Samples {
		out[i] = s.OverallScore
	}
	return out
}
