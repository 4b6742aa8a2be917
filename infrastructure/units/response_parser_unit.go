package units

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Stage = (*ResponseParserUnit)(nil)

// DefaultLoggedResponseChars bounds how much of an unparseable response is
// written to the log.
const DefaultLoggedResponseChars = 500

// ResponseParserConfig defines the configuration parameters for the
// ResponseParserUnit.
type ResponseParserConfig struct {
	// MaxLoggedResponse limits the response excerpt logged on a parse
	// failure, in runes. Zero disables the excerpt.
	MaxLoggedResponse int `yaml:"max_logged_response" json:"max_logged_response" validate:"min=0,max=65536"`
}

// ResponseParserUnit turns raw oracle text into a ScoreRecord. It never
// fails: any problem yields an annotated neutral fallback record.
//
// The payload is the text between the first '{' and the last '}', so a
// response carrying prose before and after a single JSON object parses,
// while two separate objects do not.
type ResponseParserUnit struct {
	name   string
	config ResponseParserConfig
	scorer *CompositeScorerUnit
}

// NewResponseParserUnit creates a ResponseParserUnit that repairs parsed
// records with scorer.
func NewResponseParserUnit(name string, config ResponseParserConfig, scorer *CompositeScorerUnit) (*ResponseParserUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if scorer == nil {
		return nil, fmt.Errorf("unit %s: composite scorer: %w", name, ErrNilDependency)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &ResponseParserUnit{name: name, config: config, scorer: scorer}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *ResponseParserUnit) Name() string { return u.name }

// Validate checks the configuration and the scorer dependency.
func (u *ResponseParserUnit) Validate() error {
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("unit %s: configuration validation failed: %w", u.name, err)
	}
	if u.scorer == nil {
		return fmt.Errorf("unit %s: composite scorer: %w", u.name, ErrNilDependency)
	}
	return u.scorer.Validate()
}

// Interpret converts the outcome of one oracle call into a ScoreRecord.
// A non-nil oracleErr short-circuits to a fallback annotated with the
// error's class.
func (u *ResponseParserUnit) Interpret(ctx context.Context, raw string, oracleErr error) domain.ScoreRecord {
	if oracleErr != nil {
		kind := domain.FailureKindOf(oracleErr)
		clog.FromContext(ctx).With("unit", u.name, "failure_kind", string(kind)).
			Warnf("oracle call failed, using neutral score: %v", oracleErr)
		return domain.FallbackRecord(kind, oracleErr)
	}
	return u.Parse(ctx, raw)
}

// Parse locates and decodes the score payload in raw.
func (u *ResponseParserUnit) Parse(ctx context.Context, raw string) domain.ScoreRecord {
	rec, err := u.parse(raw)
	if err != nil {
		clog.FromContext(ctx).With("unit", u.name, "response_chars", len(raw)).
			Warnf("could not parse oracle response: %v; response: %q", err, truncateRunes(raw, u.config.MaxLoggedResponse))
		return domain.FallbackRecord(domain.FailureParse, err)
	}
	return rec
}

func (u *ResponseParserUnit) parse(raw string) (domain.ScoreRecord, error) {
	payload, ok := locatePayload(raw)
	if !ok {
		return domain.ScoreRecord{}, fmt.Errorf("%w: no JSON found in response", domain.ErrParseFailure)
	}

	var wire scorePayload
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return domain.ScoreRecord{}, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
	}

	rec := domain.ScoreRecord{
		EmotionalAuthenticity: wire.EmotionalAuthenticity.Value,
		LiteraryCraft:         wire.LiteraryCraft.Value,
		ImpactMemorability:    wire.ImpactMemorability.Value,
		Originality:           wire.Originality.Value,
		OverallScore:          wire.OverallScore.Value,
		Strengths:             string(wire.Strengths),
		Weaknesses:            string(wire.Weaknesses),
		ComparisonNotes:       string(wire.ComparisonNotes),
	}

	return u.scorer.Score(rec, wire.OverallScore.Set), nil
}

// locatePayload returns the text from the first '{' through the last '}'.
func locatePayload(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// scorePayload is the oracle's wire format. Missing criteria decode as zero.
type scorePayload struct {
	EmotionalAuthenticity lenientScore `json:"emotional_authenticity"`
	LiteraryCraft         lenientScore `json:"literary_craft"`
	ImpactMemorability    lenientScore `json:"impact_memorability"`
	Originality           lenientScore `json:"originality"`
	OverallScore          lenientScore `json:"overall_score"`
	Strengths             lenientText  `json:"strengths"`
	Weaknesses            lenientText  `json:"weaknesses"`
	ComparisonNotes       lenientText  `json:"comparison_notes"`
}

// lenientScore accepts a JSON number or a numeric string. Set records
// whether a non-null value was present.
type lenientScore struct {
	Value float64
	Set   bool
}

func (s *lenientScore) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		s.Value, s.Set = n, true
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("score must be a number, got %s", b)
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(str), "%"), 64)
	if err != nil {
		return fmt.Errorf("score must be a number, got %q", str)
	}
	s.Value, s.Set = n, true
	return nil
}

// lenientText accepts a string or a list of strings, which some models
// return for strengths and weaknesses.
type lenientText string

func (t *lenientText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = lenientText(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = lenientText(strings.Join(list, "; "))
		return nil
	}

	return errors.New("text field must be a string or list of strings")
}
