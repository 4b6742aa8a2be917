package domain

import (
	"errors"
	"fmt"
)

// Evaluation pipeline errors.
var (
	// ErrExtractionFailed indicates that executing a candidate artifact
	// failed. It is always recovered by judging the raw artifact instead.
	ErrExtractionFailed = errors.New("artifact extraction failed")

	// ErrArtifactUnreadable indicates that the artifact itself could not be
	// loaded. Nothing can be judged, so the evaluation degrades to zero fitness.
	ErrArtifactUnreadable = errors.New("artifact unreadable")

	// ErrOracleUnavailable indicates that the oracle's invocation mechanism
	// could not be located or started.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleProcessError indicates that the oracle started but failed
	// while producing its response.
	ErrOracleProcessError = errors.New("oracle process error")

	// ErrOracleGenericError covers every other oracle failure.
	ErrOracleGenericError = errors.New("oracle error")

	// ErrParseFailure indicates that no usable score payload was found in
	// an oracle response.
	ErrParseFailure = errors.New("parse failure")

	// ErrNoSamples indicates that aggregation was asked to fold zero records.
	ErrNoSamples = errors.New("no samples to aggregate")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// OracleError is a classified oracle failure. Class is one of
// ErrOracleUnavailable, ErrOracleProcessError or ErrOracleGenericError, so
// callers can match either the class or the underlying cause with errors.Is.
type OracleError struct {
	// Class is the oracle failure sentinel.
	Class error
	// Provider names the transport that failed.
	Provider string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for OracleError.
func (e *OracleError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%v: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", e.Class, e.Provider, e.Err)
}

// Unwrap exposes both the class sentinel and the cause.
func (e *OracleError) Unwrap() []error { return []error{e.Class, e.Err} }

// NewOracleError creates an OracleError. A nil or unrecognized class is
// normalized to ErrOracleGenericError.
func NewOracleError(class error, provider string, err error) *OracleError {
	switch class {
	case ErrOracleUnavailable, ErrOracleProcessError, ErrOracleGenericError:
	default:
		class = ErrOracleGenericError
	}
	return &OracleError{Class: class, Provider: provider, Err: err}
}

// FailureKindOf maps an error onto the annotation recorded on fallback
// score records.
func FailureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrOracleUnavailable):
		return FailureOracleUnavailable
	case errors.Is(err, ErrOracleProcessError):
		return FailureOracleProcessError
	case errors.Is(err, ErrParseFailure):
		return FailureParse
	default:
		return FailureOracleGenericError
	}
}

// ExtractionError records why an artifact's entry point could not produce
// judged text.
type ExtractionError struct {
	// Path is the artifact location.
	Path string
	// Stage is the step that failed, such as "read", "run" or "output".
	Stage string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ExtractionError.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: path=%s, stage=%s, err=%v", e.Path, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError creates a new ExtractionError. Causes that are not
// already classified are wrapped with ErrExtractionFailed.
func NewExtractionError(path, stage string, err error) *ExtractionError {
	if !errors.Is(err, ErrExtractionFailed) && !errors.Is(err, ErrArtifactUnreadable) {
		err = fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return &ExtractionError{Path: path, Stage: stage, Err: err}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap ties every ValidationError to ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
