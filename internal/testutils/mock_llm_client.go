package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-amour/internal/ports"
)

// Markers delimiting the judged letter inside a critique prompt.
const (
	letterStartMarker = "LOVE LETTER TO EVALUATE:"
	letterEndMarker   = "Return JSON format:"
)

// MockLLMClient implements the LLMClient interface with deterministic
// critiques for consistent testing.
// It matches patterns against the letter being judged, not the whole
// prompt, so rubric text and calibration anchors never trigger a match.
type MockLLMClient struct {
	mu sync.Mutex

	// model is the mock model identifier.
	model string
	// responses are checked in order; the first matching pattern wins.
	responses []MockResponse
	// fallback answers letters no pattern matches.
	fallback string

	calls       int
	lastPrompt  string
	lastOptions map[string]any
}

// MockResponse defines a pre-configured response pattern for the mock client.
type MockResponse struct {
	// Pattern is matched case-insensitively as a substring of the letter.
	Pattern string
	// Response is the text returned for matching letters.
	Response string
	// Err, when set, is returned instead of Response.
	Err error
}

// NewMockLLMClient creates a new MockLLMClient that grades the built-in
// calibration letters inside their expected bands.
func NewMockLLMClient(model string) *MockLLMClient {
	client := &MockLLMClient{model: model}
	client.setupDefaultResponses()
	return client
}

// setupDefaultResponses configures one in-band grade per calibration letter.
func (m *MockLLMClient) setupDefaultResponses() {
	m.responses = []MockResponse{
		{Pattern: "ur hot lol", Response: ScorePayload(8, 4, 5, 6, 6)},
		{Pattern: "eyes sparkle like diamonds", Response: ScorePayload(28, 30, 25, 12, 27)},
		{Pattern: "coffee shop last tuesday", Response: ScorePayload(55, 50, 45, 40, 50)},
		{Pattern: "looking through a microscope", Response: ScorePayload(72, 68, 66, 70, 69)},
		{Pattern: "time of death", Response: ScorePayload(84, 80, 82, 75, 81)},
		{Pattern: "grocery list", Response: ScorePayload(93, 90, 91, 88, 91)},
		{Pattern: "you still fascinate and inspire me", Response: ScorePayload(98, 95, 97, 92, 97)},
	}
	m.fallback = ScorePayload(45, 45, 45, 45, 45)
}

// AddResponse registers a response that takes precedence over every
// previously registered pattern.
func (m *MockLLMClient) AddResponse(response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]MockResponse{response}, m.responses...)
}

// Complete implements the LLMClient.Complete method with deterministic
// responses based on the judged letter.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	m.lastOptions = options
	response, err := m.findMatchingResponse(LetterFromPrompt(prompt))
	m.mu.Unlock()

	if err != nil {
		return "", err
	}

	// Higher temperatures add trailing chatter after the payload.
	if temp, ok := options["temperature"].(float64); ok && temp > 0.5 {
		response += "\nLet me know if you would like a more detailed breakdown."
	}

	return response, nil
}

// EstimateTokens implements the LLMClient.EstimateTokens method using
// approximately four characters per token.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel implements the LLMClient.GetModel method returning the mock model identifier.
func (m *MockLLMClient) GetModel() string {
	return m.model
}

// SetModel updates the mock model identifier.
func (m *MockLLMClient) SetModel(model string) {
	m.model = model
}

// Calls returns how many completions were requested.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the most recent prompt.
func (m *MockLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// LastOptions returns the options of the most recent request.
func (m *MockLLMClient) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOptions
}

// Reset clears custom responses and call history.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.lastPrompt = ""
	m.lastOptions = nil
	m.setupDefaultResponses()
}

func (m *MockLLMClient) findMatchingResponse(letter string) (string, error) {
	letter = strings.ToLower(letter)
	for _, r := range m.responses {
		if r.Pattern != "" && strings.Contains(letter, strings.ToLower(r.Pattern)) {
			return r.Response, r.Err
		}
	}
	return m.fallback, nil
}

// LetterFromPrompt extracts the judged letter from a critique prompt. A
// prompt without the markers is returned whole.
func LetterFromPrompt(prompt string) string {
	_, rest, ok := strings.Cut(prompt, letterStartMarker)
	if !ok {
		return prompt
	}
	letter, _, _ := strings.Cut(rest, letterEndMarker)
	return strings.TrimSpace(letter)
}

// Verify interface compliance at compile time.
var _ ports.LLMClient = (*MockLLMClient)(nil)
