package metrics

import (
	"sort"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// Calculator computes survey metrics with a fixed set of constants
type Calculator struct {
	cfg Config
}

// New validates cfg and returns a Calculator bound to it
func New(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the constants the calculator was built with
func (c *Calculator) Config() Config {
	return c.cfg
}

// sameDay reports whether two timestamps fall on the same calendar day
func sameDay(a, b time.Time) bool {
	return entities.Day(a).Equal(entities.Day(b))
}

// speciesCounts sums individuals per species for one date.
// Rows with a zero count still register the species with a zero total
func speciesCounts(data []entities.Observation, date time.Time) (map[string]int, int) {
	counts := make(map[string]int)
	total := 0
	for _, o := range data {
		if !sameDay(o.Date, date) {
			continue
		}
		counts[o.Species] += o.Individuals
		total += o.Individuals
	}
	return counts, total
}

// Dates returns the distinct survey days present in data, oldest first
func (c *Calculator) Dates(data []entities.Observation) []time.Time {
	seen := make(map[time.Time]bool)
	for _, o := range data {
		seen[entities.Day(o.Date)] = true
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}

// SpeciesList returns the distinct species present in data, sorted by name
func (c *Calculator) SpeciesList(data []entities.Observation) []string {
	seen := make(map[string]bool)
	for _, o := range data {
		seen[o.Species] = true
	}

	species := make([]string, 0, len(seen))
	for s := range seen {
		species = append(species, s)
	}
	sort.Strings(species)
	return species
}
