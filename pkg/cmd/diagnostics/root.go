package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/config"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/pipeline"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/plotting"
)

// version is set at build time via -ldflags.
var version = "dev"

// flagBindings maps configuration keys to persistent flag names
var flagBindings = map[string]string{
	"experiment.name":         "experiment",
	"experiment.model":        "model",
	"experiment.dataset":      "dataset",
	"epochs.start":            "epoch-start",
	"epochs.end":              "epoch-end",
	"paths.dataset_root":      "dataset-root",
	"paths.models_root":       "models-root",
	"sampling.epoch":          "sampling-epoch",
	"performance.num_workers": "workers",
	"logging.level":           "log-level",
}

type app struct {
	cfg        *config.Config
	configFile string
	runner     *pipeline.Runner
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.NewConfig()}

	root := &cobra.Command{
		Use:   "diagnostics",
		Short: "Correlation statistics and plots for protein decoy scoring runs",
		Long: "diagnostics reads the per-epoch logs of a decoy scoring model and renders\n" +
			"funnel plots, loss curves, correlation curves and sampling histograms.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.Version = version

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	flags.String("experiment", "", "Experiment name")
	flags.String("model", "", "Model name")
	flags.String("dataset", "", "Dataset name")
	flags.Int("epoch-start", 0, "First epoch (inclusive)")
	flags.Int("epoch-end", 0, "Last epoch (inclusive)")
	flags.String("dataset-root", "", "Directory holding <dataset>/Description")
	flags.String("models-root", "", "Directory holding <experiment>_<model>_<dataset>")
	flags.Int("sampling-epoch", 0, "Training epoch used for the sampling histogram")
	flags.Int("workers", 0, "Concurrent log parsers for the correlation sweep")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newFunnelsCmd(a),
		newLossesCmd(a),
		newCorrelationsCmd(a),
		newSamplingCmd(a),
		newReportCmd(a),
		newAllCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if a.configFile != "" {
		if err := a.cfg.LoadFromFile(a.configFile); err != nil {
			return err
		}
	}
	if err := a.cfg.BindFlags(cmd.Flags(), flagBindings); err != nil {
		return err
	}

	exp := a.cfg.Experiment()
	if err := exp.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger = a.cfg.CreateLogger()
	renderer := plotting.NewRenderer(a.cfg.PlotSizeInches(), a.cfg.PlotDPI())
	a.runner = pipeline.NewRunner(exp, renderer, a.logger, a.cfg.NumWorkers())

	a.logger.Debug().
		Str("experiment", exp.Name).
		Str("model", exp.Model).
		Str("dataset", exp.Dataset).
		Int("epoch_start", exp.EpochStart).
		Int("epoch_end", exp.EpochEnd).
		Msg("Configuration loaded")
	return nil
}
