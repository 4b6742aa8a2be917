package domain

// Artifact is the candidate unit handed to the evaluator. It is read once
// per evaluation and never mutated.
type Artifact struct {
	// Path is where the artifact was loaded from.
	Path string
	// Source is the raw artifact content.
	Source string
}

// JudgedText is the text actually sent to the oracle.
type JudgedText string

// String returns the text as a plain string.
func (t JudgedText) String() string { return string(t) }

// ExtractionMode records how JudgedText was obtained from an Artifact.
type ExtractionMode string

// Extraction modes.
const (
	// ExtractionExecuted means the artifact's entry point ran and its
	// output became the judged text.
	ExtractionExecuted ExtractionMode = "executed"
	// ExtractionRaw means the artifact had no entry point and its content
	// was judged verbatim.
	ExtractionRaw ExtractionMode = "raw"
	// ExtractionFallback means execution was attempted, failed, and the raw
	// content was judged instead.
	ExtractionFallback ExtractionMode = "fallback"
)

// Extraction is the Artifact Extractor's result. Err is diagnostic except
// when it wraps ErrArtifactUnreadable, in which case Text is empty.
type Extraction struct {
	Text JudgedText
	Mode ExtractionMode
	Err  error
}

// FitnessResult is the stable contract consumed by the outer search loop.
type FitnessResult struct {
	// CombinedScore is OverallScore/100 in [0, 1].
	CombinedScore float64 `json:"combined_score"`
	// BeautyScore is the overall score in [0, 100].
	BeautyScore float64 `json:"beauty_score"`
	// LetterText is the judged text; empty on a zero-fitness failure.
	LetterText string `json:"letter_text"`
	// EvaluationNotes is a human-readable status line.
	EvaluationNotes string `json:"evaluation_notes"`
	// Evaluation is the diagnostic payload; nil on a zero-fitness failure.
	Evaluation *AggregateRecord `json:"evaluation,omitempty"`
}
