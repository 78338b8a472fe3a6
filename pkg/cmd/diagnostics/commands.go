package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/pipeline"
)

func newFunnelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "funnels",
		Short: "Plot validation funnels for epochs that have none yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rendered, err := a.runner.Funnels(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info().Ints("epochs", rendered).Msg("Funnels done")
			return nil
		},
	}
}

func newLossesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "losses",
		Short: "Plot training loss curves for epochs that have none yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rendered, err := a.runner.Losses(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info().Ints("epochs", rendered).Msg("Losses done")
			return nil
		},
	}
}

func newCorrelationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "correlations",
		Short: "Plot mean Kendall tau and Pearson r across the epoch range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runner.Correlations(cmd.Context())
			return err
		},
	}
}

func newSamplingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sampling",
		Short: "Plot the ground-truth similarity distribution of the training set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runner.Sampling(cmd.Context())
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the correlation report written by the last correlation sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := pipeline.ReadReport(a.runner.Experiment.CorrelationReport())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s %s\n", report.Experiment, report.Model, report.Dataset)
			fmt.Fprintf(out, "%-6s %10s %10s\n", "epoch", "kendall", "pearson")
			for _, point := range report.Epochs {
				fmt.Fprintf(out, "%-6d %10.4f %10.4f\n", point.Epoch, point.Kendall, point.Pearson)
			}
			return nil
		},
	}
}

// newAllCmd mirrors the usual analysis session: correlations, then funnels
func newAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run the correlation sweep followed by the funnel sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.runner.Correlations(cmd.Context()); err != nil {
				return err
			}
			rendered, err := a.runner.Funnels(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info().Ints("epochs", rendered).Msg("Funnels done")
			return nil
		},
	}
}
