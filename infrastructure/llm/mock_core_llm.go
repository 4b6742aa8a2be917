package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errSimulated is returned by MockCoreLLM failure modes when no Error is set.
var errSimulated = errors.New("simulated failure")

// MockCoreLLM is a configurable CoreLLM for tests. Responses, when set, are
// returned in order and the last one repeats; otherwise Response is used.
type MockCoreLLM struct {
	mu sync.Mutex

	Response      string
	Responses     []string
	TokensIn      int
	TokensOut     int
	Error         error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int
	// AlternateErrors fails every even-numbered call.
	AlternateErrors bool

	CallCount      int
	LastPrompt     string
	LastOpts       map[string]any
	LastContext    context.Context
	CallTimestamps []time.Time
}

// NewMockCoreLLM creates a new mock CoreLLM with default successful behavior.
func NewMockCoreLLM() *MockCoreLLM {
	return &MockCoreLLM{
		Response:  "test response",
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

// DoRequest implements the CoreLLM interface with configurable behavior.
func (m *MockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.LastPrompt = prompt
	m.LastOpts = opts
	m.LastContext = ctx
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	failErr := m.Error
	if failErr == nil {
		failErr = errSimulated
	}

	switch {
	case m.FailUntilAttempt > 0 && call <= m.FailUntilAttempt:
		return "", 0, 0, failErr
	case m.AlternateErrors && call%2 == 0:
		return "", 0, 0, failErr
	case m.Error != nil && m.FailUntilAttempt == 0 && !m.AlternateErrors:
		return "", 0, 0, m.Error
	}

	response := m.Response
	if len(m.Responses) > 0 {
		response = m.Responses[min(call, len(m.Responses))-1]
	}

	return response, m.TokensIn, m.TokensOut, nil
}

// GetModel returns the configured model name.
func (m *MockCoreLLM) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// SetModel updates the model name.
func (m *MockCoreLLM) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// GetCallCount returns the number of times DoRequest was called.
func (m *MockCoreLLM) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetTimeBetweenCalls returns the duration between two recorded calls, or
// nil if either index is out of range.
func (m *MockCoreLLM) GetTimeBetweenCalls(call1, call2 int) *time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if call1 < 0 || call2 < 0 || call1 >= len(m.CallTimestamps) || call2 >= len(m.CallTimestamps) {
		return nil
	}

	d := m.CallTimestamps[call2].Sub(m.CallTimestamps[call1])
	return &d
}
