// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

// Stage represents one step of the evaluation pipeline: parsing, scoring,
// aggregation or normalization. Stages are stateless after construction
// and safe for concurrent use.
type Stage interface {
	// Name returns a unique identifier for this stage.
	// The name is used for logging, metrics labels and configuration.
	Name() string

	// Validate checks if the stage is properly configured and ready for
	// execution. It is called once while the evaluator is assembled.
	Validate() error
}
