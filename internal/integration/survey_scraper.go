// Package integration handles loading survey data from external sources
package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abelzeko/bird-survey/internal/entities"
)

// SurveyScraper loads point count tables published as HTML survey exports
type SurveyScraper struct {
	sourceURL string
	client    *http.Client
}

// NewSurveyScraper creates a new survey export scraper
func NewSurveyScraper(url string) *SurveyScraper {
	return &SurveyScraper{
		sourceURL: url,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SourceURL returns the export page the scraper reads from
func (s *SurveyScraper) SourceURL() string {
	return s.sourceURL
}

// FetchObservations retrieves the survey export page and parses its observation table
func (s *SurveyScraper) FetchObservations(ctx context.Context) ([]entities.Observation, error) {
	if s.sourceURL == "" {
		return nil, fmt.Errorf("no survey source url configured")
	}

	slog.Info("Sending HTTP request to survey export", "url", s.sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		slog.Error("Error fetching survey export", "err", err)
		return nil, fmt.Errorf("failed to fetch the survey export: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		slog.Error("Received unexpected status code", "status", res.Status)
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	return ParseObservations(res.Body)
}

// ParseObservations parses the first HTML table whose header carries the
// Date, Species and # Individuals columns. Columns may appear in any order.
// Rows that cannot be parsed are logged and skipped
func ParseObservations(r io.Reader) ([]entities.Observation, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the survey export: %w", err)
	}

	var (
		data       []entities.Observation
		found      bool
		headerErr  error
		rowCount   int
		skippedRow int
	)

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		idx, err := indexColumns(cellTexts(rows.First().Find("th, td")))
		if err != nil {
			headerErr = err
			return true
		}
		found = true

		rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := cellTexts(row.Find("td"))
			if len(cells) == 0 || isBlank(cells) {
				return
			}
			rowCount++

			o, err := idx.observation(cells)
			if err != nil {
				slog.Warn("Skipping survey row", "row", rowCount, "err", err)
				skippedRow++
				return
			}
			data = append(data, o)
		})
		return false
	})

	if !found {
		if headerErr == nil {
			headerErr = fmt.Errorf("%w: %q (no table found)", ErrMissingColumn, ColumnDate)
		}
		return nil, headerErr
	}

	// Oldest first for consistency with the csv loader output order
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Date.Before(data[j].Date)
	})

	slog.Info("Parsed survey export", "rows", rowCount, "valid", len(data), "skipped", skippedRow)
	return data, nil
}

// cellTexts returns the trimmed text of each cell in the selection
func cellTexts(cells *goquery.Selection) []string {
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(c.Text()))
	})
	return texts
}
