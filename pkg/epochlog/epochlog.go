// Package epochlog reads and writes the per-epoch output log of the scoring
// model. A log has a free-form preamble, a "Decoys scores:" section of
// <protein> <decoy_path> <score> rows and a "Loss function values:" section of
// <step> <loss> rows.
package epochlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

const (
	ScoresMarker = "Decoys scores:"
	LossMarker   = "Loss function values:"
)

type section int

const (
	preamble section = iota
	scoresSection
	lossSection
)

// Read parses the epoch log at path
func Read(path string) (*models.EpochOutput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open epoch log: %w", err)
	}
	defer file.Close()

	return Parse(file, path)
}

// Parse reads an epoch log from r. source names the input in errors.
// Any malformed row aborts the parse; no partial output is returned.
func Parse(r io.Reader, source string) (*models.EpochOutput, error) {
	out := models.NewEpochOutput()
	state := preamble

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch state {
		case preamble:
			if strings.Contains(line, ScoresMarker) {
				state = scoresSection
			}
			continue
		case scoresSection:
			if strings.Contains(line, LossMarker) {
				state = lossSection
				continue
			}
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		var err *models.MalformedRecordError
		if state == scoresSection {
			err = parseScore(fields, out.Scores)
		} else {
			err = parseLoss(fields, out)
		}
		if err != nil {
			err.Source = source
			err.Line = lineNum
			err.Text = line
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read epoch log %s: %w", source, err)
	}
	return out, nil
}

func parseScore(fields []string, scores models.ScoreMap) *models.MalformedRecordError {
	if len(fields) < 3 {
		return &models.MalformedRecordError{
			Field: "score",
			Err:   fmt.Errorf("expected <protein> <decoy_path> <score>, got %d columns", len(fields)),
		}
	}
	score, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return &models.MalformedRecordError{Field: "score", Err: err}
	}
	scores.Set(fields[0], fields[1], score)
	return nil
}

func parseLoss(fields []string, out *models.EpochOutput) *models.MalformedRecordError {
	if len(fields) < 2 {
		return &models.MalformedRecordError{
			Field: "loss",
			Err:   fmt.Errorf("expected <step> <loss>, got %d columns", len(fields)),
		}
	}
	loss, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return &models.MalformedRecordError{Field: "loss", Err: err}
	}
	out.Losses = append(out.Losses, loss)
	return nil
}

// Write emits out in the log format. Proteins and decoys are sorted; loss
// steps are numbered from 1.
func Write(w io.Writer, out *models.EpochOutput) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, ScoresMarker)
	for _, protein := range out.Scores.Proteins() {
		decoys := out.Scores[protein]
		paths := make([]string, 0, len(decoys))
		for path := range decoys {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			fmt.Fprintf(bw, "%s %s %s\n", protein, path, strconv.FormatFloat(decoys[path], 'g', -1, 64))
		}
	}

	fmt.Fprintln(bw, LossMarker)
	for i, loss := range out.Losses {
		fmt.Fprintf(bw, "%d %s\n", i+1, strconv.FormatFloat(loss, 'g', -1, 64))
	}

	return bw.Flush()
}

// WriteFile writes out to path, replacing any existing file
func WriteFile(path string, out *models.EpochOutput) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create epoch log: %w", err)
	}

	if err := Write(file, out); err != nil {
		file.Close()
		return fmt.Errorf("failed to write epoch log %s: %w", path, err)
	}
	return file.Close()
}
