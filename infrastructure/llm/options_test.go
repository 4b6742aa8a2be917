package llm

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		options := ParseRequestOptions(nil, "default-model")

		assert.Equal(t, DefaultMaxTokens, options.MaxTokens)
		assert.Equal(t, "default-model", options.Model)
		assert.Empty(t, options.System)
		assert.Nil(t, options.Temperature)
		assert.Nil(t, options.TopP)
		assert.Empty(t, options.Extra)
	})

	t.Run("explicit values", func(t *testing.T) {
		options := ParseRequestOptions(map[string]any{
			"max_tokens":  float64(900),
			"model":       "override",
			"system":      "critic",
			"temperature": 0,
			"top_p":       float32(0.9),
			"seed":        42,
		}, "default-model")

		assert.Equal(t, 900, options.MaxTokens)
		assert.Equal(t, "override", options.Model)
		assert.Equal(t, "critic", options.System)
		require.NotNil(t, options.Temperature)
		assert.Zero(t, *options.Temperature, "zero temperature is a valid explicit value")
		require.NotNil(t, options.TopP)
		assert.InDelta(t, 0.9, *options.TopP, 1e-6)
		assert.Equal(t, map[string]any{"seed": 42}, options.Extra)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		options := ParseRequestOptions(map[string]any{
			"max_tokens":  -5,
			"model":       "",
			"temperature": 7.0,
			"top_p":       "high",
		}, "default-model")

		assert.Equal(t, DefaultMaxTokens, options.MaxTokens)
		assert.Equal(t, "default-model", options.Model)
		assert.Nil(t, options.Temperature)
		assert.Nil(t, options.TopP)
	})
}

func TestSafeInt(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		want   int
		wantOK bool
	}{
		{"int", 7, 7, true},
		{"int64", int64(8), 8, true},
		{"float64 truncates", 9.9, 9, true},
		{"nan", math.NaN(), 0, false},
		{"overflow", math.MaxFloat64, 0, false},
		{"string", "10", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SafeInt(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "https://api.example.com/v1", want: "https://api.example.com/v1"},
		{in: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{in: "ftp://example.com", wantErr: true},
		{in: "https://", wantErr: true},
		{in: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	assert.Zero(t, ValidateTimeout(0))
	assert.Zero(t, ValidateTimeout(-time.Second))
	assert.Equal(t, MinTimeout, ValidateTimeout(time.Millisecond))
	assert.Equal(t, 90*time.Second, ValidateTimeout(90*time.Second))
	assert.Equal(t, MaxTimeout, ValidateTimeout(time.Hour))
}

func TestTokenCounter(t *testing.T) {
	tc := NewTokenCounter()

	assert.Zero(t, tc.EstimateTokens(""))
	assert.Equal(t, 1, tc.EstimateTokens("ab"), "half a token rounds up")
	assert.Equal(t, 3, tc.EstimateTokens("twelve chars"))
	assert.Equal(t, 17, tc.GetTokenCount(17, "ignored"))
	assert.Equal(t, 2, tc.GetTokenCount(0, "eight ch"))
	assert.Equal(t, tc.EstimateTokens("love"), EstimateTokens("love"))
}
