package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMetricsMiddleware_RecordsSuccessfulRequests tests that the metrics middleware
// records latency, request count and tokens for a successful request.
func TestMetricsMiddleware_RecordsSuccessfulRequests(t *testing.T) {
	mock := NewMockCoreLLM()
	metrics := newMockMetricsCollector()
	wrapped := MetricsMiddleware("anthropic", metrics)(mock)

	response, tokensIn, tokensOut, err := wrapped.DoRequest(context.Background(), "test prompt", nil)

	require.NoError(t, err, "request should succeed")
	assert.Equal(t, "test response", response)
	assert.Equal(t, 10, tokensIn)
	assert.Equal(t, 20, tokensOut)

	assert.Contains(t, metrics.histograms, MetricOracleLatency+":anthropic", "should record latency histogram")
	assert.Equal(t, 1.0, metrics.counters[MetricOracleRequests+":anthropic"], "should record request counter")
	assert.Equal(t, 30.0, metrics.counters[MetricOracleTokens+":anthropic"], "should record input + output tokens")
}

// TestMetricsMiddleware_Status verifies the status label for each outcome.
func TestMetricsMiddleware_Status(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(*MockCoreLLM)
		ctxTimeout time.Duration
		wantStatus string
	}{
		{
			name:       "success",
			configure:  func(*MockCoreLLM) {},
			wantStatus: "success",
		},
		{
			name:       "generic failure",
			configure:  func(m *MockCoreLLM) { m.Error = errors.New("service error") },
			wantStatus: "error",
		},
		{
			name:       "circuit open",
			configure:  func(m *MockCoreLLM) { m.Error = ErrCircuitOpen },
			wantStatus: "circuit_open",
		},
		{
			name: "unavailable",
			configure: func(m *MockCoreLLM) {
				m.Error = NewProviderError("claude-cli", ErrorTypeUnavailable, 0, ClaudeCLIInstallHint, nil)
			},
			wantStatus: "unavailable",
		},
		{
			name:       "timeout",
			configure:  func(m *MockCoreLLM) { m.ResponseDelay = 200 * time.Millisecond },
			ctxTimeout: 20 * time.Millisecond,
			wantStatus: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockCoreLLM()
			tt.configure(mock)
			metrics := newMockMetricsCollector()
			wrapped := MetricsMiddleware("claude-cli", metrics)(mock)

			ctx := context.Background()
			if tt.ctxTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.ctxTimeout)
				defer cancel()
			}

			_, _, _, _ = wrapped.DoRequest(ctx, "prompt", nil)

			require.NotEmpty(t, metrics.labels)
			assert.Equal(t, tt.wantStatus, metrics.labels[0]["status"])
			assert.Equal(t, "claude-cli", metrics.labels[0]["provider"])
			assert.Equal(t, "test-model", metrics.labels[0]["model"])
			assert.Equal(t, 1.0, metrics.counters[MetricOracleRequests+":claude-cli"])
		})
	}
}

// TestMetricsMiddleware_NoTokensOnFailure verifies that failed requests do
// not report token usage.
func TestMetricsMiddleware_NoTokensOnFailure(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = errors.New("service error")
	metrics := newMockMetricsCollector()
	wrapped := MetricsMiddleware("openai", metrics)(mock)

	_, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)

	require.Error(t, err)
	assert.NotContains(t, metrics.counters, MetricOracleTokens+":openai")
}

// TestMetricsMiddleware_TokenLabelsDoNotLeak verifies that the token_type
// label is added to copies, not to the shared request labels.
func TestMetricsMiddleware_TokenLabelsDoNotLeak(t *testing.T) {
	metrics := newMockMetricsCollector()
	wrapped := MetricsMiddleware("google", metrics)(NewMockCoreLLM())

	_, _, _, err := wrapped.DoRequest(context.Background(), "p", nil)
	require.NoError(t, err)

	require.Len(t, metrics.labels, 4)
	assert.NotContains(t, metrics.labels[0], "token_type")
	assert.NotContains(t, metrics.labels[1], "token_type")
	assert.Equal(t, "input", metrics.labels[2]["token_type"])
	assert.Equal(t, "output", metrics.labels[3]["token_type"])
}

// TestMetricsMiddleware_PassesThroughModelMethods tests model passthrough.
func TestMetricsMiddleware_PassesThroughModelMethods(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := MetricsMiddleware("anthropic", newMockMetricsCollector())(mock)

	assert.Equal(t, "test-model", wrapped.GetModel())
	wrapped.SetModel("new-model")
	assert.Equal(t, "new-model", mock.GetModel())
}

// TestMetricsMiddleware_NilMetricsCollector tests that a nil collector is tolerated.
func TestMetricsMiddleware_NilMetricsCollector(t *testing.T) {
	mock := NewMockCoreLLM()
	wrapped := MetricsMiddleware("anthropic", nil)(mock)

	response, _, _, err := wrapped.DoRequest(context.Background(), "test prompt", nil)

	require.NoError(t, err)
	assert.Equal(t, "test response", response)
	assert.Equal(t, 1, mock.GetCallCount())
}
