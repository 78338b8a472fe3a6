package correlation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

const tolerance = 1e-9

// twoProteinDataset: P1 has two aligned decoys, P2 a single one
func twoProteinDataset() (*models.Description, models.ScoreMap) {
	desc := &models.Description{Proteins: []models.Protein{
		{ID: "P1", Decoys: []models.Decoy{{Name: "A", Similarity: 0.9}, {Name: "B", Similarity: 0.5}}},
		{ID: "P2", Decoys: []models.Decoy{{Name: "C", Similarity: 0.8}}},
	}}
	scores := models.ScoreMap{
		"P1": {"A": 5, "B": 3},
		"P2": {"C": 9},
	}
	return desc, scores
}

func TestKendall(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want float64
	}{
		{"two aligned points", []float64{0.9, 0.5}, []float64{5, 3}, 1},
		{"reversed", []float64{1, 2, 3, 4}, []float64{4, 3, 2, 1}, -1},
		{"one swap", []float64{1, 2, 3}, []float64{1, 3, 2}, 1.0 / 3.0},
		{"tie in x", []float64{1, 2, 2, 3}, []float64{1, 2, 3, 4}, 5 / math.Sqrt(30)},
		{"single point", []float64{0.8}, []float64{9}, math.NaN()},
		{"empty", []float64{}, []float64{}, math.NaN()},
		{"constant x", []float64{0.5, 0.5, 0.5}, []float64{1, 2, 3}, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Kendall(tt.x, tt.y)
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("Expected NaN, got %v", got)
				}
				return
			}
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestKendallAgreesWithGonumWithoutTies(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		n := 2 + rng.Intn(30)
		x := make([]float64, n)
		y := make([]float64, n)
		for i := range x {
			x[i] = rng.Float64()
			y[i] = x[i] + rng.NormFloat64()
		}

		got := Kendall(x, y)
		want := stat.Kendall(x, y, nil)
		if math.Abs(got-want) > tolerance {
			t.Fatalf("trial %d: Kendall=%v, gonum tau-a=%v", trial, got, want)
		}
	}
}

func TestPearson(t *testing.T) {
	if got := Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}); math.Abs(got-1) > tolerance {
		t.Errorf("Expected 1, got %v", got)
	}
	if got := Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}); math.Abs(got+1) > tolerance {
		t.Errorf("Expected -1, got %v", got)
	}
	if got := Pearson([]float64{0.8}, []float64{9}); !math.IsNaN(got) {
		t.Errorf("Expected NaN for a single point, got %v", got)
	}
	if got := Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}); !math.IsNaN(got) {
		t.Errorf("Expected NaN for a constant sequence, got %v", got)
	}
}

func TestMeanKendallTreatsUndefinedAsZero(t *testing.T) {
	desc, scores := twoProteinDataset()

	got, err := MeanKendall(desc, scores)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if math.Abs(got-0.5) > tolerance {
		t.Errorf("Expected mean tau 0.5 (1.0 and 0.0), got %v", got)
	}
}

func TestMeanPearsonPropagatesNaN(t *testing.T) {
	desc, scores := twoProteinDataset()

	got, err := MeanPearson(desc, scores)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("Expected NaN mean Pearson, got %v", got)
	}

	desc.Proteins = desc.Proteins[:1]
	got, err = MeanPearson(desc, scores)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if math.Abs(got-1) > tolerance {
		t.Errorf("Expected Pearson 1 for P1 alone, got %v", got)
	}
}

func TestEvaluate(t *testing.T) {
	desc, scores := twoProteinDataset()

	summary, err := Evaluate(desc, scores)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []ProteinCorrelation{
		{Protein: "P1", Decoys: 2, Kendall: 1, Pearson: 1},
		{Protein: "P2", Decoys: 1, Kendall: math.NaN(), Pearson: math.NaN()},
	}
	opts := cmp.Options{cmpopts.EquateNaNs(), cmpopts.EquateApprox(0, tolerance)}
	if diff := cmp.Diff(want, summary.PerProtein, opts); diff != "" {
		t.Errorf("Per-protein mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateEmptyDataset(t *testing.T) {
	summary, err := Evaluate(&models.Description{}, models.ScoreMap{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !math.IsNaN(summary.Kendall) || !math.IsNaN(summary.Pearson) {
		t.Errorf("Expected NaN means for an empty dataset, got %v / %v", summary.Kendall, summary.Pearson)
	}
}

func TestSeriesMissingScore(t *testing.T) {
	desc, scores := twoProteinDataset()
	delete(scores["P1"], "B")

	_, _, err := Series(desc.Proteins[0], scores)
	if !errors.Is(err, models.ErrMissingScore) {
		t.Errorf("Expected ErrMissingScore, got: %v", err)
	}

	if _, err := Evaluate(desc, scores); !errors.Is(err, models.ErrMissingScore) {
		t.Errorf("Expected Evaluate to surface ErrMissingScore, got: %v", err)
	}
}

func TestSeriesOrder(t *testing.T) {
	protein := models.Protein{ID: "P1", Decoys: []models.Decoy{
		{Name: "B", Similarity: 0.5}, {Name: "A", Similarity: 0.9},
	}}
	truth, predicted, err := Series(protein, models.ScoreMap{"P1": {"A": 5, "B": 3}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if diff := cmp.Diff([]float64{0.5, 0.9}, truth); diff != "" {
		t.Errorf("Truth mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3, 5}, predicted); diff != "" {
		t.Errorf("Predicted mismatch (-want +got):\n%s", diff)
	}
}
