package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func newGoogleTestProvider(t *testing.T, handler http.HandlerFunc) CoreLLM {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := newGoogleProvider(ClientConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return provider
}

func TestNewGoogleProvider(t *testing.T) {
	provider, err := newGoogleProvider(ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, GoogleDefaultModel, provider.GetModel())

	_, err = newGoogleProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)
}

func TestGoogleProvider_DoRequest(t *testing.T) {
	// Given a generateContent endpoint
	var body map[string]any
	provider := newGoogleTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+GoogleDefaultModel+":generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": `{"overall_score": 64}`}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 30, "candidatesTokenCount": 9},
		})
	})

	// When a request is sent with a system instruction
	response, tokensIn, tokensOut, err := provider.DoRequest(context.Background(), "rate this letter", map[string]any{
		"system": "critic",
	})

	// Then the candidate text and usage metadata are returned
	require.NoError(t, err)
	assert.Equal(t, `{"overall_score": 64}`, response)
	assert.Equal(t, 30, tokensIn)
	assert.Equal(t, 9, tokensOut)
	assert.Contains(t, body, "systemInstruction")
}

func TestGoogleProvider_ServerError(t *testing.T) {
	provider := newGoogleTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 500, "message": "internal", "status": "INTERNAL"},
		})
	})

	_, _, _, err := provider.DoRequest(context.Background(), "prompt", nil)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ErrorTypeServerError, provErr.Type)
}

func TestBuildGenerationConfig(t *testing.T) {
	p := &googleProvider{}
	temp := 3.0
	topP := 0.5

	config := p.buildGenerationConfig(RequestOptions{
		Model:       GoogleDefaultModel,
		MaxTokens:   256,
		Temperature: &temp,
		TopP:        &topP,
		System:      "critic",
	})

	require.NotNil(t, config.SystemInstruction)
	assert.Equal(t, "critic", config.SystemInstruction.Parts[0].Text)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, MaxTemperature, *config.Temperature, 1e-6, "temperature should be clamped")
	require.NotNil(t, config.TopP)
	assert.InDelta(t, 0.5, *config.TopP, 1e-6)
	assert.Equal(t, int32(256), config.MaxOutputTokens)

	empty := p.buildGenerationConfig(RequestOptions{Model: GoogleDefaultModel})
	assert.Nil(t, empty.SystemInstruction)
	assert.Nil(t, empty.Temperature)
}

func TestGoogleProvider_HandleError(t *testing.T) {
	p := &googleProvider{errorClassifier: &ErrorClassifier{Provider: "google"}}

	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"deadline", context.DeadlineExceeded, ErrorTypeTimeout},
		{"genai rate limit", genai.APIError{Code: 429, Message: "quota"}, ErrorTypeRateLimit},
		{"genai safety", genai.APIError{Code: 400, Message: "Request blocked for SAFETY"}, ErrorTypeContentPolicy},
		{"googleapi auth", &googleapi.Error{Code: 403, Message: "forbidden"}, ErrorTypeAuthentication},
		{
			"googleapi safety reason",
			&googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "SAFETY", Message: "blocked"}}},
			ErrorTypeContentPolicy,
		},
		{"transport", errors.New("connection reset"), ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var provErr *ProviderError
			require.ErrorAs(t, p.handleError(tt.err), &provErr)
			assert.Equal(t, tt.wantType, provErr.Type)
		})
	}
}
