// Package pipeline drives the diagnostics over an experiment's epoch range.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/config"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/correlation"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/dataset"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/epochlog"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

// Renderer draws the diagnostic plots. *plotting.Renderer implements it.
type Renderer interface {
	Funnels(desc *models.Description, scores models.ScoreMap, path string) error
	Loss(losses []float64, path string) error
	Correlations(epochs []int, taus, pearsons []float64, path string) error
	Histogram(values []float64, path string) error
}

// Runner runs the diagnostics for one experiment
type Runner struct {
	Experiment config.Experiment
	Renderer   Renderer
	Logger     zerolog.Logger
	Workers    int
}

// NewRunner creates a runner. workers bounds concurrent log parsing.
func NewRunner(exp config.Experiment, renderer Renderer, logger zerolog.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		Experiment: exp,
		Renderer:   renderer,
		Logger:     logger,
		Workers:    workers,
	}
}

func (r *Runner) loadDescription(manifest string) (*models.Description, error) {
	dir := r.Experiment.DescriptionDir()
	r.Logger.Info().Str("dir", dir).Str("manifest", manifest).Msg("Loading dataset")

	desc, err := dataset.ReadDescription(dir, manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset description: %w", err)
	}

	r.Logger.Info().
		Int("proteins", len(desc.Proteins)).
		Int("decoys", desc.NumDecoys()).
		Msg("Dataset loaded")
	r.Logger.Debug().Strs("ids", desc.IDs()).Msg("Dataset proteins")
	return desc, nil
}

// Funnels renders funnel plots for every validated epoch that has none yet.
// Existing plots are left untouched. Returns the epochs rendered.
func (r *Runner) Funnels(ctx context.Context) ([]int, error) {
	desc, err := r.loadDescription(r.Experiment.ValidationManifest)
	if err != nil {
		return nil, err
	}

	rendered := make([]int, 0)
	for _, epoch := range r.Experiment.Epochs() {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}

		input := r.Experiment.ValidationLog(epoch)
		output := r.Experiment.FunnelPlot(epoch)
		pending, err := needsRender(input, output)
		if err != nil {
			return rendered, err
		}
		if !pending {
			continue
		}

		out, err := epochlog.Read(input)
		if err != nil {
			return rendered, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		r.Logger.Info().Int("epoch", epoch).Str("path", output).Msg("Plotting funnels")
		if err := r.Renderer.Funnels(desc, out.Scores, output); err != nil {
			return rendered, fmt.Errorf("epoch %d: failed to plot funnels: %w", epoch, err)
		}
		rendered = append(rendered, epoch)
	}

	return rendered, nil
}

// Losses renders the training loss curve for every epoch that has none yet.
// Returns the epochs rendered.
func (r *Runner) Losses(ctx context.Context) ([]int, error) {
	rendered := make([]int, 0)
	for _, epoch := range r.Experiment.Epochs() {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}

		input := r.Experiment.TrainingLog(epoch)
		output := r.Experiment.LossPlot(epoch)
		pending, err := needsRender(input, output)
		if err != nil {
			return rendered, err
		}
		if !pending {
			continue
		}

		out, err := epochlog.Read(input)
		if err != nil {
			return rendered, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		r.Logger.Info().Int("epoch", epoch).Int("steps", len(out.Losses)).Str("path", output).Msg("Plotting loss")
		if err := r.Renderer.Loss(out.Losses, output); err != nil {
			return rendered, fmt.Errorf("epoch %d: failed to plot loss: %w", epoch, err)
		}
		rendered = append(rendered, epoch)
	}

	return rendered, nil
}

// Sampling renders the distribution of ground-truth similarity over the
// training set.
func (r *Runner) Sampling(ctx context.Context) error {
	desc, err := r.loadDescription(r.Experiment.TrainingManifest)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	epoch := r.Experiment.SamplingEpoch
	out, err := epochlog.Read(r.Experiment.TrainingLog(epoch))
	if err != nil {
		return fmt.Errorf("epoch %d: %w", epoch, err)
	}

	output := r.Experiment.SamplingPlot()
	r.Logger.Info().
		Int("epoch", epoch).
		Int("scored", out.Scores.Len()).
		Str("path", output).
		Msg("Plotting decoy sampling")
	if err := r.Renderer.Histogram(desc.Similarities(), output); err != nil {
		return fmt.Errorf("failed to plot decoy sampling: %w", err)
	}
	return nil
}

// Correlations computes mean Kendall tau and Pearson r for every validated
// epoch, then renders the curve and writes the report. Existing outputs are
// replaced.
func (r *Runner) Correlations(ctx context.Context) (*Curve, error) {
	desc, err := r.loadDescription(r.Experiment.ValidationManifest)
	if err != nil {
		return nil, err
	}

	epochs := make([]int, 0)
	for _, epoch := range r.Experiment.Epochs() {
		exists, err := fileExists(r.Experiment.ValidationLog(epoch))
		if err != nil {
			return nil, err
		}
		if exists {
			epochs = append(epochs, epoch)
		}
	}

	summaries := make([]*correlation.Summary, len(epochs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i, epoch := range epochs {
		i, epoch := i, epoch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := epochlog.Read(r.Experiment.ValidationLog(epoch))
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			summary, err := correlation.Evaluate(desc, out.Scores)
			if err != nil {
				return fmt.Errorf("epoch %d: %w", epoch, err)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	curve := &Curve{
		Epochs:  epochs,
		Kendall: make([]float64, len(epochs)),
		Pearson: make([]float64, len(epochs)),
	}
	for i, summary := range summaries {
		curve.Kendall[i] = summary.Kendall
		curve.Pearson[i] = summary.Pearson
		r.Logger.Debug().
			Int("epoch", epochs[i]).
			Float64("kendall", summary.Kendall).
			Float64("pearson", summary.Pearson).
			Msg("Epoch correlation")
	}

	output := r.Experiment.CorrelationPlot()
	r.Logger.Info().Int("epochs", len(epochs)).Str("path", output).Msg("Plotting correlations")
	if err := r.Renderer.Correlations(curve.Epochs, curve.Kendall, curve.Pearson, output); err != nil {
		return nil, fmt.Errorf("failed to plot correlations: %w", err)
	}

	if err := WriteReport(r.Experiment.CorrelationReport(), NewReport(r.Experiment, curve)); err != nil {
		return nil, err
	}

	if last, ok := curve.Last(); ok {
		r.Logger.Info().
			Int("epoch", last.Epoch).
			Float64("kendall", last.Kendall).
			Float64("pearson", last.Pearson).
			Msg("Latest correlation")
	}
	return curve, nil
}

// needsRender reports whether input exists and output does not
func needsRender(input, output string) (bool, error) {
	haveInput, err := fileExists(input)
	if err != nil || !haveInput {
		return false, err
	}
	haveOutput, err := fileExists(output)
	if err != nil {
		return false, err
	}
	return !haveOutput, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}
