package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/config"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/epochlog"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/plotting"
)

// recordingRenderer records calls and touches the output file so reruns see it
type recordingRenderer struct {
	funnels      []string
	losses       []string
	correlations [][]int
	histograms   [][]float64
}

func touch(path string) error {
	return os.WriteFile(path, []byte("png"), 0644)
}

func (r *recordingRenderer) Funnels(desc *models.Description, scores models.ScoreMap, path string) error {
	r.funnels = append(r.funnels, path)
	return touch(path)
}

func (r *recordingRenderer) Loss(losses []float64, path string) error {
	r.losses = append(r.losses, path)
	return touch(path)
}

func (r *recordingRenderer) Correlations(epochs []int, taus, pearsons []float64, path string) error {
	r.correlations = append(r.correlations, epochs)
	return touch(path)
}

func (r *recordingRenderer) Histogram(values []float64, path string) error {
	r.histograms = append(r.histograms, values)
	return touch(path)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func mustWriteLog(t *testing.T, path string, out *models.EpochOutput) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := epochlog.WriteFile(path, out); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
}

// setupExperiment lays out a dataset with validation logs for epochs 0 and 2
// and a training log for epoch 1.
func setupExperiment(t *testing.T) config.Experiment {
	root := t.TempDir()
	exp := config.Experiment{
		Name:               "QA",
		Model:              "ranking_model",
		Dataset:            "CASP",
		EpochStart:         0,
		EpochEnd:           3,
		DatasetRoot:        filepath.Join(root, "datasets"),
		ModelsRoot:         filepath.Join(root, "models"),
		ValidationManifest: "validation_set.dat",
		TrainingManifest:   "training_set.dat",
		SamplingEpoch:      1,
	}

	desc := exp.DescriptionDir()
	mustWrite(t, filepath.Join(desc, "validation_set.dat"), "P1\nP2\n")
	mustWrite(t, filepath.Join(desc, "training_set.dat"), "P1\n")
	mustWrite(t, filepath.Join(desc, "P1.dat"), "decoy rmsd tm\nA 1.0 0.9\nB 2.0 0.5\n")
	mustWrite(t, filepath.Join(desc, "P2.dat"), "decoy rmsd tm\nC 1.0 0.8\nD 2.0 0.3\nE 3.0 0.6\n")

	mustWriteLog(t, exp.ValidationLog(0), &models.EpochOutput{
		Losses: []float64{1, 0.5},
		Scores: models.ScoreMap{"P1": {"A": 5, "B": 3}, "P2": {"C": 1, "D": 2, "E": 3}},
	})
	mustWriteLog(t, exp.ValidationLog(2), &models.EpochOutput{
		Losses: []float64{0.4},
		Scores: models.ScoreMap{"P1": {"A": 1, "B": 2}, "P2": {"C": 3, "D": 1, "E": 2}},
	})
	mustWriteLog(t, exp.TrainingLog(1), &models.EpochOutput{
		Losses: []float64{2, 1.5, 1.2},
		Scores: models.ScoreMap{"P1": {"A": 0, "B": 0}},
	})

	return exp
}

func newTestRunner(exp config.Experiment, renderer Renderer) *Runner {
	return NewRunner(exp, renderer, zerolog.Nop(), 2)
}

func TestFunnelsIdempotent(t *testing.T) {
	exp := setupExperiment(t)
	renderer := &recordingRenderer{}
	runner := newTestRunner(exp, renderer)

	rendered, err := runner.Funnels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, rendered); diff != "" {
		t.Errorf("Rendered epochs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{exp.FunnelPlot(0), exp.FunnelPlot(2)}, renderer.funnels); diff != "" {
		t.Errorf("Funnel outputs mismatch (-want +got):\n%s", diff)
	}

	rendered, err = runner.Funnels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error on rerun, got: %v", err)
	}
	if len(rendered) != 0 {
		t.Errorf("Expected nothing rendered on rerun, got %v", rendered)
	}
	if len(renderer.funnels) != 2 {
		t.Errorf("Expected renderer not to be invoked again, got %d calls", len(renderer.funnels))
	}
}

func TestFunnelsSkipsExistingOutput(t *testing.T) {
	exp := setupExperiment(t)
	mustWrite(t, exp.FunnelPlot(2), "already there")
	renderer := &recordingRenderer{}

	rendered, err := newTestRunner(exp, renderer).Funnels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]int{0}, rendered); diff != "" {
		t.Errorf("Rendered epochs mismatch (-want +got):\n%s", diff)
	}

	data, err := os.ReadFile(exp.FunnelPlot(2))
	if err != nil || string(data) != "already there" {
		t.Errorf("Expected existing output to be preserved, got %q (%v)", data, err)
	}
}

func TestFunnelsCorruptLog(t *testing.T) {
	exp := setupExperiment(t)
	mustWrite(t, exp.ValidationLog(1), "Decoys scores:\nP1 A\n")

	_, err := newTestRunner(exp, &recordingRenderer{}).Funnels(context.Background())
	var malformed *models.MalformedRecordError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedRecordError, got: %v", err)
	}
}

func TestFunnelsMissingDataset(t *testing.T) {
	exp := setupExperiment(t)
	exp.Dataset = "3DRobot_set"

	if _, err := newTestRunner(exp, &recordingRenderer{}).Funnels(context.Background()); err == nil {
		t.Error("Expected error for missing dataset description")
	}
}

func TestFunnelsCancelled(t *testing.T) {
	exp := setupExperiment(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	renderer := &recordingRenderer{}
	_, err := newTestRunner(exp, renderer).Funnels(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
	if len(renderer.funnels) != 0 {
		t.Errorf("Expected no rendering after cancellation, got %d", len(renderer.funnels))
	}
}

func TestLossesIdempotent(t *testing.T) {
	exp := setupExperiment(t)
	renderer := &recordingRenderer{}
	runner := newTestRunner(exp, renderer)

	rendered, err := runner.Losses(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]int{1}, rendered); diff != "" {
		t.Errorf("Rendered epochs mismatch (-want +got):\n%s", diff)
	}

	if _, err := runner.Losses(context.Background()); err != nil {
		t.Fatalf("Expected no error on rerun, got: %v", err)
	}
	if len(renderer.losses) != 1 {
		t.Errorf("Expected a single loss render, got %d", len(renderer.losses))
	}
}

func TestCorrelations(t *testing.T) {
	exp := setupExperiment(t)
	renderer := &recordingRenderer{}
	runner := newTestRunner(exp, renderer)

	curve, err := runner.Correlations(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	opts := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff([]int{0, 2}, curve.Epochs); diff != "" {
		t.Errorf("Epochs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1.0 / 3.0, 0}, curve.Kendall, opts); diff != "" {
		t.Errorf("Kendall mismatch (-want +got):\n%s", diff)
	}
	for i, r := range curve.Pearson {
		if math.IsNaN(r) || r < -1 || r > 1 {
			t.Errorf("Epoch %d: Pearson out of range: %v", curve.Epochs[i], r)
		}
	}

	report, err := ReadReport(exp.CorrelationReport())
	if err != nil {
		t.Fatalf("Expected report, got: %v", err)
	}
	want := &Report{Experiment: "QA", Model: "ranking_model", Dataset: "CASP", Epochs: curve.Points()}
	if diff := cmp.Diff(want, report, opts); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}

	// Correlation sweep always re-renders
	if _, err := runner.Correlations(context.Background()); err != nil {
		t.Fatalf("Expected no error on rerun, got: %v", err)
	}
	if len(renderer.correlations) != 2 {
		t.Errorf("Expected two correlation renders, got %d", len(renderer.correlations))
	}
}

func TestCorrelationsMissingScore(t *testing.T) {
	exp := setupExperiment(t)
	mustWriteLog(t, exp.ValidationLog(3), &models.EpochOutput{
		Scores: models.ScoreMap{"P1": {"A": 1, "B": 2}},
	})

	_, err := newTestRunner(exp, &recordingRenderer{}).Correlations(context.Background())
	if !errors.Is(err, models.ErrMissingScore) {
		t.Errorf("Expected ErrMissingScore, got: %v", err)
	}
}

func TestSampling(t *testing.T) {
	exp := setupExperiment(t)
	renderer := &recordingRenderer{}

	if err := newTestRunner(exp, renderer).Sampling(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([][]float64{{0.9, 0.5}}, renderer.histograms); diff != "" {
		t.Errorf("Histogram values mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplingMissingLog(t *testing.T) {
	exp := setupExperiment(t)
	exp.SamplingEpoch = 7

	if err := newTestRunner(exp, &recordingRenderer{}).Sampling(context.Background()); err == nil {
		t.Error("Expected error for missing training log")
	}
}

func TestEndToEndWithPlotting(t *testing.T) {
	exp := setupExperiment(t)
	runner := newTestRunner(exp, plotting.NewRenderer(4, 20))
	ctx := context.Background()

	if _, err := runner.Funnels(ctx); err != nil {
		t.Fatalf("Funnels failed: %v", err)
	}
	if _, err := runner.Losses(ctx); err != nil {
		t.Fatalf("Losses failed: %v", err)
	}
	if _, err := runner.Correlations(ctx); err != nil {
		t.Fatalf("Correlations failed: %v", err)
	}
	if err := runner.Sampling(ctx); err != nil {
		t.Fatalf("Sampling failed: %v", err)
	}

	for _, path := range []string{
		exp.FunnelPlot(0),
		exp.FunnelPlot(2),
		exp.LossPlot(1),
		exp.CorrelationPlot(),
		exp.CorrelationReport(),
		exp.SamplingPlot(),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected output %s: %v", path, err)
		}
	}
}
