// Package dataset reads dataset descriptions: a manifest of protein ids and,
// per protein, a <protein>.dat file listing decoys with their similarity to
// the native structure.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gilchrisn/decoy-scoring-diagnostics/pkg/models"
)

// Column layout of a <protein>.dat record
const (
	decoyNameColumn  = 0
	similarityColumn = 2
)

// maxLineSize bounds a single line, matching the epoch log reader
const maxLineSize = 1024 * 1024

// DecoyFileExt is appended to a protein id to find its decoy listing
const DecoyFileExt = ".dat"

// ReadDescription loads the manifest in dir and every protein's decoy file
func ReadDescription(dir, manifest string) (*models.Description, error) {
	ids, err := ReadManifest(filepath.Join(dir, manifest))
	if err != nil {
		return nil, err
	}

	desc := &models.Description{Proteins: make([]models.Protein, 0, len(ids))}
	for _, id := range ids {
		decoys, err := ReadDecoys(filepath.Join(dir, id+DecoyFileExt))
		if err != nil {
			return nil, fmt.Errorf("failed to read decoys for %s: %w", id, err)
		}
		desc.Proteins = append(desc.Proteins, models.Protein{ID: id, Decoys: decoys})
	}

	return desc, nil
}

// ReadManifest returns the first token of every non-blank line
func ReadManifest(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open manifest: %w", err)
	}
	defer file.Close()

	ids := make([]string, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		ids = append(ids, fields[0])
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ids, nil
}

// ReadDecoys parses a decoy listing. The first line is a header.
func ReadDecoys(path string) ([]models.Decoy, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open decoy file: %w", err)
	}
	defer file.Close()

	decoys := make([]models.Decoy, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}

		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		decoy, err := parseDecoyRecord(fields)
		if err != nil {
			err.Source = path
			err.Line = lineNum
			err.Text = line
			return nil, err
		}
		decoys = append(decoys, decoy)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read decoy file %s: %w", path, err)
	}
	return decoys, nil
}

func parseDecoyRecord(fields []string) (models.Decoy, *models.MalformedRecordError) {
	if len(fields) <= similarityColumn {
		return models.Decoy{}, &models.MalformedRecordError{
			Field: "similarity",
			Err:   fmt.Errorf("expected at least %d columns, got %d", similarityColumn+1, len(fields)),
		}
	}

	similarity, err := strconv.ParseFloat(fields[similarityColumn], 64)
	if err != nil {
		return models.Decoy{}, &models.MalformedRecordError{Field: "similarity", Err: err}
	}

	return models.Decoy{Name: fields[decoyNameColumn], Similarity: similarity}, nil
}
