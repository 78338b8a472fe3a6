// Package correlation measures how well predicted decoy scores track the
// ground-truth similarity of each decoy to its native structure.
package correlation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

// ProteinCorrelation holds the coefficients for one protein
type ProteinCorrelation struct {
	Protein string  `json:"protein" yaml:"protein"`
	Decoys  int     `json:"decoys" yaml:"decoys"`
	Kendall float64 `json:"kendall" yaml:"kendall"`
	Pearson float64 `json:"pearson" yaml:"pearson"`
}

// Summary aggregates coefficients over a dataset
type Summary struct {
	Kendall    float64              `json:"kendall" yaml:"kendall"`
	Pearson    float64              `json:"pearson" yaml:"pearson"`
	PerProtein []ProteinCorrelation `json:"per_protein" yaml:"per_protein"`
}

// Series builds aligned ground-truth and predicted sequences in the protein's
// decoy order.
func Series(p models.Protein, scores models.ScoreMap) (truth, predicted []float64, err error) {
	truth = make([]float64, len(p.Decoys))
	predicted = make([]float64, len(p.Decoys))
	for i, decoy := range p.Decoys {
		score, ok := scores.Score(p.ID, decoy.Name)
		if !ok {
			return nil, nil, fmt.Errorf("protein %s decoy %s: %w", p.ID, decoy.Name, models.ErrMissingScore)
		}
		truth[i] = decoy.Similarity
		predicted[i] = score
	}
	return truth, predicted, nil
}

// Kendall returns the tie-corrected Kendall tau-b of x and y. The result is
// NaN when either sequence has no untied pairs.
func Kendall(x, y []float64) float64 {
	if len(x) != len(y) {
		panic("correlation: slice length mismatch")
	}

	n := len(x)
	var concordant, discordant, tiesX, tiesY int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := x[i] - x[j]
			dy := y[i] - y[j]
			switch {
			case dx == 0 && dy == 0:
				tiesX++
				tiesY++
			case dx == 0:
				tiesX++
			case dy == 0:
				tiesY++
			case (dx > 0) == (dy > 0):
				concordant++
			default:
				discordant++
			}
		}
	}

	pairs := n * (n - 1) / 2
	denom := math.Sqrt(float64(pairs-tiesX) * float64(pairs-tiesY))
	if denom == 0 {
		return math.NaN()
	}
	return float64(concordant-discordant) / denom
}

// Pearson returns the Pearson correlation coefficient of x and y, NaN when
// fewer than two points are given or either sequence is constant.
func Pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// MeanKendall averages per-protein Kendall tau. An undefined tau counts as 0.
func MeanKendall(desc *models.Description, scores models.ScoreMap) (float64, error) {
	summary, err := Evaluate(desc, scores)
	if err != nil {
		return math.NaN(), err
	}
	return summary.Kendall, nil
}

// MeanPearson averages per-protein Pearson r. Undefined coefficients are not
// masked and make the mean NaN.
func MeanPearson(desc *models.Description, scores models.ScoreMap) (float64, error) {
	summary, err := Evaluate(desc, scores)
	if err != nil {
		return math.NaN(), err
	}
	return summary.Pearson, nil
}

// Evaluate computes per-protein coefficients and their unweighted means
func Evaluate(desc *models.Description, scores models.ScoreMap) (*Summary, error) {
	summary := &Summary{PerProtein: make([]ProteinCorrelation, 0, len(desc.Proteins))}

	taus := make([]float64, 0, len(desc.Proteins))
	pearsons := make([]float64, 0, len(desc.Proteins))
	for _, protein := range desc.Proteins {
		truth, predicted, err := Series(protein, scores)
		if err != nil {
			return nil, err
		}

		tau := Kendall(truth, predicted)
		r := Pearson(truth, predicted)
		summary.PerProtein = append(summary.PerProtein, ProteinCorrelation{
			Protein: protein.ID,
			Decoys:  len(protein.Decoys),
			Kendall: tau,
			Pearson: r,
		})

		if math.IsNaN(tau) {
			tau = 0
		}
		taus = append(taus, tau)
		pearsons = append(pearsons, r)
	}

	summary.Kendall = mean(taus)
	summary.Pearson = mean(pearsons)
	return summary, nil
}

// mean of an empty slice is NaN
func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}
