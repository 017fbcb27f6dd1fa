package integration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// Column names of the point count species table
const (
	ColumnDate        = "Date"
	ColumnSpecies     = "Species"
	ColumnIndividuals = "# Individuals"
	ColumnSite        = "Site"
	ColumnObserver    = "Observer"
)

// ErrMissingColumn is returned when a required column is absent from the table header
var ErrMissingColumn = errors.New("missing required column")

// dateLayouts lists the date formats accepted in survey exports
var dateLayouts = []string{
	entities.DateLayout,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// columnIndex maps header names to their positions
type columnIndex map[string]int

// indexColumns locates the required and optional columns in a header row
func indexColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnDate, ColumnSpecies, ColumnIndividuals} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}
	return idx, nil
}

// field returns the trimmed value of the named column, or "" if absent
func (idx columnIndex) field(record []string, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// observation converts one record to an Observation
func (idx columnIndex) observation(record []string) (entities.Observation, error) {
	date, err := ParseSurveyDate(idx.field(record, ColumnDate))
	if err != nil {
		return entities.Observation{}, err
	}

	species := idx.field(record, ColumnSpecies)
	if species == "" {
		return entities.Observation{}, errors.New("empty species")
	}

	count, err := ParseCount(idx.field(record, ColumnIndividuals))
	if err != nil {
		return entities.Observation{}, err
	}

	return entities.Observation{
		Date:        date,
		Species:     species,
		Individuals: count,
		Site:        idx.field(record, ColumnSite),
		Observer:    idx.field(record, ColumnObserver),
	}, nil
}

// ParseSurveyDate parses a date in any of the accepted survey export formats
func ParseSurveyDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return entities.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseCount parses a non-negative individual count
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid individual count %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative individual count %d", n)
	}
	return n, nil
}

// LoadCSV reads a point count species table with a header row.
// A missing required column fails the whole load; a malformed row reports its line
func LoadCSV(r io.Reader) ([]entities.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: %q (empty file)", ErrMissingColumn, ColumnDate)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var data []entities.Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		o, err := idx.observation(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		data = append(data, o)
	}

	slog.Info("Loaded observations from csv", "rows", len(data))
	return data, nil
}

// LoadCSVFile opens path and loads it with LoadCSV
func LoadCSVFile(path string) ([]entities.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return data, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
