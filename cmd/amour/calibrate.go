package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-amour/internal/application"
)

func (c *cli) calibrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate",
		Short: "Score the built-in reference letters and report how well the critic discriminates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, ev *application.Evaluator) error {
				report := ev.Calibrate(ctx, application.CalibrationLetters(), 0)
				return report.Render(cmd.OutOrStdout())
			})
		},
	}
}
