package metrics

import (
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// Completeness returns the number of survey rows on d divided by
// MaxSurveysPerDay. The result is not clamped: more than MaxSurveysPerDay rows
// on one day yields a value above 1
func (c *Calculator) Completeness(data []entities.Observation, d time.Time) float64 {
	n := 0
	for _, o := range data {
		if sameDay(o.Date, d) {
			n++
		}
	}
	return float64(n) / float64(c.cfg.MaxSurveysPerDay)
}
