package models

import (
	"errors"
	"fmt"
	"sort"
)

// Decoy is a candidate structure paired with its similarity to the native structure
type Decoy struct {
	Name       string  `json:"name" yaml:"name"`
	Similarity float64 `json:"similarity" yaml:"similarity"`
}

// Protein owns the decoys listed for it, in file order
type Protein struct {
	ID     string  `json:"id" yaml:"id"`
	Decoys []Decoy `json:"decoys" yaml:"decoys"`
}

// Description is a dataset description: proteins in manifest order
type Description struct {
	Proteins []Protein `json:"proteins" yaml:"proteins"`
}

// IDs returns protein identifiers in manifest order
func (d *Description) IDs() []string {
	ids := make([]string, len(d.Proteins))
	for i, p := range d.Proteins {
		ids[i] = p.ID
	}
	return ids
}

// Similarities pools ground-truth scores across all proteins
func (d *Description) Similarities() []float64 {
	values := make([]float64, 0)
	for _, p := range d.Proteins {
		for _, decoy := range p.Decoys {
			values = append(values, decoy.Similarity)
		}
	}
	return values
}

// NumDecoys counts decoys across all proteins
func (d *Description) NumDecoys() int {
	total := 0
	for _, p := range d.Proteins {
		total += len(p.Decoys)
	}
	return total
}

// ScoreMap maps protein id -> decoy path -> predicted score
type ScoreMap map[string]map[string]float64

// Set records a predicted score, replacing any earlier value
func (s ScoreMap) Set(protein, decoy string, score float64) {
	if s[protein] == nil {
		s[protein] = make(map[string]float64)
	}
	s[protein][decoy] = score
}

// Score returns the predicted score for a decoy
func (s ScoreMap) Score(protein, decoy string) (float64, bool) {
	decoys, ok := s[protein]
	if !ok {
		return 0, false
	}
	score, ok := decoys[decoy]
	return score, ok
}

// Proteins returns protein ids in sorted order
func (s ScoreMap) Proteins() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len counts scored decoys across all proteins
func (s ScoreMap) Len() int {
	total := 0
	for _, decoys := range s {
		total += len(decoys)
	}
	return total
}

// EpochOutput is the parsed content of one epoch log
type EpochOutput struct {
	Losses []float64 `json:"losses" yaml:"losses"`
	Scores ScoreMap  `json:"scores" yaml:"scores"`
}

// NewEpochOutput returns an empty output ready to be filled
func NewEpochOutput() *EpochOutput {
	return &EpochOutput{
		Losses: []float64{},
		Scores: make(ScoreMap),
	}
}

// ErrMissingScore is returned when a dataset decoy has no predicted score
var ErrMissingScore = errors.New("missing predicted score")

// MalformedRecordError reports a line that does not match its expected shape
type MalformedRecordError struct {
	Source string
	Line   int
	Field  string
	Text   string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record at %s:%d", e.Source, e.Line)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field '%s')", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Text != "" {
		msg += fmt.Sprintf(" [%q]", e.Text)
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// ValidationError represents structured validation errors
type ValidationError struct {
	Field   string
	Message string
	Value   string
}

func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("validation error in field '%s': %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("validation error in field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(ve), ve[0].Error(), len(ve)-1)
}
