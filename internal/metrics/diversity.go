package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// Simpson returns Simpson's diversity for all counts on date: the probability
// that two individuals drawn without replacement belong to different species.
// Every logged individual is treated as distinct
//
// A day with fewer than two individuals has no defined index and returns
// ErrZeroDivision
func (c *Calculator) Simpson(data []entities.Observation, date time.Time) (float64, error) {
	counts, total := speciesCounts(data, date)
	if total <= 1 {
		return 0, fmt.Errorf("simpson diversity on %s with %d individuals: %w",
			date.Format(entities.DateLayout), total, ErrZeroDivision)
	}

	n := float64(total)
	denom := n * (n - 1)

	var sum float64
	for _, count := range counts {
		k := float64(count)
		sum += k * (k - 1) / denom
	}
	return 1 - sum, nil
}

// Shannon returns the Shannon entropy (natural log) of the species
// proportions on date. Species with a zero count are skipped
func (c *Calculator) Shannon(data []entities.Observation, date time.Time) (float64, error) {
	counts, total := speciesCounts(data, date)
	if total == 0 {
		return 0, fmt.Errorf("shannon diversity on %s with no individuals: %w",
			date.Format(entities.DateLayout), ErrZeroDivision)
	}

	n := float64(total)
	var h float64
	for _, count := range counts {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		h -= p * math.Log(p)
	}
	return h, nil
}

// Alpha returns 1/Simpson for date. When Simpson is exactly zero (a single
// species) there is no value and ok is false; errors from Simpson propagate
func (c *Calculator) Alpha(data []entities.Observation, date time.Time) (value float64, ok bool, err error) {
	d, err := c.Simpson(data, date)
	if err != nil {
		return 0, false, err
	}
	if d == 0 {
		return 0, false, nil
	}
	return 1 / d, true, nil
}

// Beta returns the Sørensen-type overlap between the species abundance
// profiles of two days. Species rows are summed per day before the two
// profiles are joined; species missing on one day count as zero there
func (c *Calculator) Beta(data []entities.Observation, date1, date2 time.Time) (float64, error) {
	first, _ := speciesCounts(data, date1)
	second, _ := speciesCounts(data, date2)

	var numerator, denominator int
	for species, a := range first {
		b := second[species]
		numerator += min(a, b)
		denominator += a + b
	}
	for species, b := range second {
		if _, ok := first[species]; ok {
			continue
		}
		denominator += b
	}

	if denominator == 0 {
		return 0, fmt.Errorf("beta diversity between %s and %s with no individuals: %w",
			date1.Format(entities.DateLayout), date2.Format(entities.DateLayout), ErrZeroDivision)
	}
	return 2 * float64(numerator) / float64(denominator), nil
}

// Richness counts species with at least one individual on date
func (c *Calculator) Richness(data []entities.Observation, date time.Time) int {
	counts, _ := speciesCounts(data, date)
	n := 0
	for _, count := range counts {
		if count > 0 {
			n++
		}
	}
	return n
}
