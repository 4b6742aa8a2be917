package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLLMError tests the functionality of the LLMError error type.
func TestLLMError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewLLMError("claude-sonnet-4", "Complete", ErrInvalidResponse)

		assert.Equal(t, "LLM error: model=claude-sonnet-4, operation=Complete, err=invalid response", err.Error())
		assert.Equal(t, "claude-sonnet-4", err.Model)
		assert.Equal(t, "Complete", err.Operation)
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("wrapped error", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := fmt.Errorf("critique: %w", NewLLMError("gpt-4o", "Complete", cause))

		var llmErr *LLMError
		assert.ErrorAs(t, err, &llmErr)
		assert.Equal(t, "gpt-4o", llmErr.Model)
		assert.ErrorIs(t, err, cause)
	})
}

// TestConfigError tests the functionality of the ConfigError error type.
func TestConfigError(t *testing.T) {
	err := NewConfigError("amour.yaml", ErrConfigNotFound)

	assert.Equal(t, "config error: key=amour.yaml, err=configuration not found", err.Error())
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
