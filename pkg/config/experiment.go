package config

import (
	"fmt"
	"path/filepath"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

// Experiment identifies one trained model run and where its files live.
//
// Layout:
//
//	<DatasetRoot>/<Dataset>/Description/{<manifest>, <protein>.dat}
//	<ModelsRoot>/<Name>_<Model>_<Dataset>/{validation,training}/epoch_<n>.dat
//	<ModelsRoot>/<Name>_<Model>_<Dataset>/*.png
type Experiment struct {
	Name    string `json:"name" yaml:"name"`
	Model   string `json:"model" yaml:"model"`
	Dataset string `json:"dataset" yaml:"dataset"`

	EpochStart int `json:"epoch_start" yaml:"epoch_start"`
	EpochEnd   int `json:"epoch_end" yaml:"epoch_end"`

	DatasetRoot        string `json:"dataset_root" yaml:"dataset_root"`
	ModelsRoot         string `json:"models_root" yaml:"models_root"`
	ValidationManifest string `json:"validation_manifest" yaml:"validation_manifest"`
	TrainingManifest   string `json:"training_manifest" yaml:"training_manifest"`
	SamplingEpoch      int    `json:"sampling_epoch" yaml:"sampling_epoch"`
}

// Validate checks that the experiment can be resolved to paths
func (e Experiment) Validate() error {
	var errors models.ValidationErrors

	required := []struct{ field, value string }{
		{"experiment.name", e.Name},
		{"experiment.model", e.Model},
		{"experiment.dataset", e.Dataset},
		{"paths.dataset_root", e.DatasetRoot},
		{"paths.models_root", e.ModelsRoot},
		{"manifests.validation", e.ValidationManifest},
		{"manifests.training", e.TrainingManifest},
	}
	for _, r := range required {
		if r.value == "" {
			errors = append(errors, models.ValidationError{Field: r.field, Message: "cannot be empty"})
		}
	}

	if e.EpochStart < 0 {
		errors = append(errors, models.ValidationError{
			Field:   "epochs.start",
			Message: "must be non-negative",
			Value:   fmt.Sprint(e.EpochStart),
		})
	}
	if e.EpochEnd < e.EpochStart {
		errors = append(errors, models.ValidationError{
			Field:   "epochs.end",
			Message: "must not precede epochs.start",
			Value:   fmt.Sprintf("%d < %d", e.EpochEnd, e.EpochStart),
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// Epochs lists the epoch range, inclusive of both ends
func (e Experiment) Epochs() []int {
	if e.EpochEnd < e.EpochStart {
		return nil
	}
	epochs := make([]int, 0, e.EpochEnd-e.EpochStart+1)
	for epoch := e.EpochStart; epoch <= e.EpochEnd; epoch++ {
		epochs = append(epochs, epoch)
	}
	return epochs
}

func (e Experiment) DescriptionDir() string {
	return filepath.Join(e.DatasetRoot, e.Dataset, "Description")
}

func (e Experiment) ModelDir() string {
	return filepath.Join(e.ModelsRoot, fmt.Sprintf("%s_%s_%s", e.Name, e.Model, e.Dataset))
}

func (e Experiment) ValidationLog(epoch int) string {
	return filepath.Join(e.ModelDir(), "validation", fmt.Sprintf("epoch_%d.dat", epoch))
}

func (e Experiment) TrainingLog(epoch int) string {
	return filepath.Join(e.ModelDir(), "training", fmt.Sprintf("epoch_%d.dat", epoch))
}

func (e Experiment) FunnelPlot(epoch int) string {
	return filepath.Join(e.ModelDir(), fmt.Sprintf("epoch%d_funnels.png", epoch))
}

func (e Experiment) LossPlot(epoch int) string {
	return filepath.Join(e.ModelDir(), fmt.Sprintf("epoch%d_loss.png", epoch))
}

func (e Experiment) CorrelationPlot() string {
	return filepath.Join(e.ModelDir(), "kendall_validation.png")
}

func (e Experiment) CorrelationReport() string {
	return filepath.Join(e.ModelDir(), "kendall_validation.yaml")
}

func (e Experiment) SamplingPlot() string {
	return filepath.Join(e.ModelDir(), "decoy_sampling.png")
}
