package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-amour/infrastructure/units"
	"github.com/ahrav/go-amour/internal/application"
	"github.com/ahrav/go-amour/internal/domain"
)

func (c *cli) evaluateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate <artifact-path>",
		Short: "Score one artifact and print its fitness record as JSON",
		Long: `Evaluate extracts the letter produced by the artifact, critiques it the
configured number of times and prints the fitness record. Failures inside the
pipeline, and configuration or setup failures once the artifact path is known,
produce a zero-fitness record, not an error exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			evaluated := false
			err := c.run(cmd, func(ctx context.Context, ev *application.Evaluator) error {
				evaluated = true
				return writeResult(out, ev.Evaluate(ctx, args[0]))
			})
			if err == nil || evaluated {
				return err
			}

			newLogger(cmd.ErrOrStderr(), "info").With("artifact", args[0]).Errorf("evaluation setup failed: %v", err)
			return writeResult(out, failedResult(err))
		},
	}
}

// failedResult is the zero-fitness record for an evaluation that never
// reached the pipeline.
func failedResult(cause error) domain.FitnessResult {
	normalizer, err := units.NewFitnessNormalizerUnit("normalizer")
	if err != nil {
		return domain.FitnessResult{EvaluationNotes: "Evaluation failed: " + cause.Error()}
	}
	return normalizer.Failed(cause)
}

func writeResult(w io.Writer, result domain.FitnessResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
