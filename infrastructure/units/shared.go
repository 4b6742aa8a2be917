// Package units provides the pipeline stages that turn raw oracle responses
// into fitness: response parsing, composite scoring, sample aggregation and
// fitness normalization. Every unit implements ports.Stage.
package units

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Common errors returned by unit constructors.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNilOracle is returned when a unit that calls the oracle is built without one.
	ErrNilOracle = errors.New("oracle cannot be nil")

	// ErrNilDependency is returned when a unit is built without a required collaborator.
	ErrNilDependency = errors.New("required unit dependency is nil")

	// ErrInvalidSampleCount is returned when aggregation is asked for a sample
	// count outside 1..MaxSamples.
	ErrInvalidSampleCount = errors.New("sample count out of range")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()
