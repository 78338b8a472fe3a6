package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/config"
)

// Curve holds mean correlations per epoch, in ascending epoch order
type Curve struct {
	Epochs  []int
	Kendall []float64
	Pearson []float64
}

// CurvePoint is one epoch of a Curve
type CurvePoint struct {
	Epoch   int     `yaml:"epoch"`
	Kendall float64 `yaml:"kendall"`
	Pearson float64 `yaml:"pearson"`
}

// Points returns the curve as a list of epochs
func (c *Curve) Points() []CurvePoint {
	points := make([]CurvePoint, len(c.Epochs))
	for i, epoch := range c.Epochs {
		points[i] = CurvePoint{Epoch: epoch, Kendall: c.Kendall[i], Pearson: c.Pearson[i]}
	}
	return points
}

// Last returns the latest epoch on the curve
func (c *Curve) Last() (CurvePoint, bool) {
	if len(c.Epochs) == 0 {
		return CurvePoint{}, false
	}
	i := len(c.Epochs) - 1
	return CurvePoint{Epoch: c.Epochs[i], Kendall: c.Kendall[i], Pearson: c.Pearson[i]}, true
}

// Report is the on-disk record of a correlation sweep
type Report struct {
	Experiment string       `yaml:"experiment"`
	Model      string       `yaml:"model"`
	Dataset    string       `yaml:"dataset"`
	Epochs     []CurvePoint `yaml:"epochs"`
}

func NewReport(exp config.Experiment, curve *Curve) *Report {
	return &Report{
		Experiment: exp.Name,
		Model:      exp.Model,
		Dataset:    exp.Dataset,
		Epochs:     curve.Points(),
	}
}

// WriteReport writes report as YAML, replacing any existing file
func WriteReport(path string, report *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode report %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush report %s: %w", path, err)
	}
	return file.Close()
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}
