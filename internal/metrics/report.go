package metrics

import (
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// Report summarizes every per-day metric for one survey date.
// Indices that are undefined for the day are nil
type Report struct {
	Date         time.Time
	Surveys      int
	Completeness float64
	Individuals  int
	Richness     int
	Simpson      *float64
	Shannon      *float64
	Alpha        *float64
}

// DailyReport computes all per-day metrics for date. Undefined indices are
// left nil instead of failing the whole report
func (c *Calculator) DailyReport(data []entities.Observation, date time.Time) Report {
	_, total := speciesCounts(data, date)

	r := Report{
		Date:         entities.Day(date),
		Completeness: c.Completeness(data, date),
		Individuals:  total,
		Richness:     c.Richness(data, date),
	}
	for _, o := range data {
		if sameDay(o.Date, date) {
			r.Surveys++
		}
	}

	if v, err := c.Simpson(data, date); err == nil {
		r.Simpson = &v
	}
	if v, err := c.Shannon(data, date); err == nil {
		r.Shannon = &v
	}
	if v, ok, err := c.Alpha(data, date); err == nil && ok {
		r.Alpha = &v
	}
	return r
}
