package application

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-amour/infrastructure/llm"
)

// configValidator validates Config with the custom tags registered below.
var configValidator = newConfigValidator()

// modelNamePattern accepts provider model identifiers such as
// "claude-sonnet-4-20250514", "gpt-4o" or "models/gemini-2.5-pro".
var modelNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@/\-]*$`)

func newConfigValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterConfigValidators registers the custom struct tags used by Config:
// "provider" for registry provider names and "modelname" for model
// identifiers.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("provider", validateProvider); err != nil {
		return fmt.Errorf("failed to register provider validator: %w", err)
	}
	if err := v.RegisterValidation("modelname", validateModelName); err != nil {
		return fmt.Errorf("failed to register modelname validator: %w", err)
	}
	return nil
}

// validateProvider accepts names present in the default provider table.
func validateProvider(fl validator.FieldLevel) bool {
	_, ok := llm.DefaultProviders()[fl.Field().String()]
	return ok
}

// validateModelName rejects empty segments and whitespace.
func validateModelName(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	return modelNamePattern.MatchString(model)
}

// describeFieldError renders one validator failure for humans.
func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "provider":
		return fmt.Sprintf("%s: unknown provider %q", field, fe.Value())
	case "modelname":
		return fmt.Sprintf("%s: invalid model name %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
