package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/ahrav/go-amour/internal/domain"
	"github.com/ahrav/go-amour/internal/ports"
)

var _ ports.Oracle = (*StubOracle)(nil)

// StubResponse is one scripted oracle outcome.
type StubResponse struct {
	// Text is the raw critique returned when Err is nil.
	Text string
	// Err is returned instead of Text when set.
	Err error
}

// StubOracle is a deterministic ports.Oracle that replays scripted
// responses in order, cycling once the script is exhausted. It records
// every text it was asked to critique and is safe for concurrent use.
type StubOracle struct {
	mu        sync.Mutex
	responses []StubResponse
	texts     []domain.JudgedText

	// OnCall, when set, runs before each response is returned with the
	// zero-based call index.
	OnCall func(ctx context.Context, call int)
}

// NewStubOracle creates a StubOracle that replays responses.
func NewStubOracle(responses ...StubResponse) *StubOracle {
	return &StubOracle{responses: responses}
}

// Critique returns the next scripted response.
func (s *StubOracle) Critique(ctx context.Context, text domain.JudgedText) (string, error) {
	s.mu.Lock()
	call := len(s.texts)
	s.texts = append(s.texts, text)
	hook := s.OnCall
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}

	if len(s.responses) == 0 {
		return "", domain.NewOracleError(domain.ErrOracleGenericError, "stub", fmt.Errorf("no scripted responses"))
	}
	r := s.responses[call%len(s.responses)]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls returns how many times Critique was invoked.
func (s *StubOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

// Texts returns a copy of every text passed to Critique, in call order.
func (s *StubOracle) Texts() []domain.JudgedText {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.JudgedText, len(s.texts))
	copy(out, s.texts)
	return out
}

// Scored is a StubResponse carrying a well-formed score payload with the
// given sub-criteria and overall.
func Scored(auth, craft, impact, orig, overall float64) StubResponse {
	return StubResponse{Text: ScorePayload(auth, craft, impact, orig, overall)}
}

// Failing is a StubResponse that fails with an OracleError of class.
func Failing(class error, cause string) StubResponse {
	return StubResponse{Err: domain.NewOracleError(class, "stub", fmt.Errorf("%s", cause))}
}

// ScorePayload renders a critique with a JSON score record wrapped in
// prose, the way real oracles tend to answer.
func ScorePayload(auth, craft, impact, orig, overall float64) string {
	return fmt.Sprintf(`Here is my evaluation.
{
  "emotional_authenticity": %g,
  "literary_craft": %g,
  "impact_memorability": %g,
  "originality": %g,
  "overall_score": %g,
  "strengths": "specific imagery",
  "weaknesses": "leans on cliche",
  "comparison_notes": "between the mediocre and excellent anchors"
}
I hope this helps.`, auth, craft, impact, orig, overall)
}
