package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(choices ...string) map[string]any {
	out := make([]map[string]any, 0, len(choices))
	for i, c := range choices {
		out = append(out, map[string]any{
			"index":         i,
			"message":       map[string]any{"role": "assistant", "content": c},
			"finish_reason": "stop",
		})
	}
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"model":   OpenAIDefaultModel,
		"choices": out,
		"usage":   map[string]any{"prompt_tokens": 50, "completion_tokens": 12, "total_tokens": 62},
	}
}

func newOpenAITestProvider(t *testing.T, handler http.HandlerFunc) CoreLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := newOpenAIProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	return provider
}

func TestNewOpenAIProvider(t *testing.T) {
	provider, err := newOpenAIProvider(ClientConfig{APIKey: "k", Timeout: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDefaultModel, provider.GetModel())

	provider.SetModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", provider.GetModel())

	_, err = newOpenAIProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = newOpenAIProvider(ClientConfig{APIKey: "k", BaseURL: "localhost:8080"})
	assert.Error(t, err, "base url without scheme should be rejected")
}

func TestOpenAIProvider_DoRequest(t *testing.T) {
	// Given a chat completions endpoint
	var body map[string]any
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("first", "second"))
	})

	// When a request is sent with a system prompt
	response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), "rate this letter", map[string]any{
		"system":     "critic",
		"max_tokens": 512,
	})

	// Then the first choice is returned with reported usage
	require.NoError(t, err)
	assert.Equal(t, "first", response)
	assert.Equal(t, 50, tokensIn)
	assert.Equal(t, 12, tokensOut)

	// And the system prompt precedes the user message
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "critic", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "rate this letter", messages[1].(map[string]any)["content"])
	assert.Equal(t, 512.0, body["max_tokens"])
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		wantType ErrorType
		wantErr  error
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     map[string]any{"error": map[string]any{"message": "slow down", "type": "requests", "code": "rate_limit_exceeded"}},
			wantType: ErrorTypeRateLimit,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			body:     map[string]any{"error": map[string]any{"message": "bad", "type": "invalid_request_error"}},
			wantType: ErrorTypeBadRequest,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}},
			wantType: ErrorTypeServerError,
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			body:     chatCompletion(),
			wantType: ErrorTypeServerError,
			wantErr:  ErrNoResponseChoice,
		},
		{
			name:     "empty content",
			status:   http.StatusOK,
			body:     chatCompletion(""),
			wantType: ErrorTypeServerError,
			wantErr:  ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newOpenAITestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			})

			_, _, _, err := provider.DoRequest(context.Background(), "prompt", nil)

			var provErr *ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.wantType, provErr.Type)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	provider := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, _, err := provider.DoRequest(ctx, "prompt", nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ErrorTypeTimeout, provErr.Type)
}
