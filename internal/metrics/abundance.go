package metrics

import (
	"time"

	"github.com/abelzeko/bird-survey/internal/entities"
)

// AbundanceDaysSeen counts the distinct days on which species was recorded.
// Presence per day is used instead of raw counts, which may count the same
// birds in several sessions of one day
func (c *Calculator) AbundanceDaysSeen(data []entities.Observation, species string) int {
	days := make(map[time.Time]struct{})
	for _, o := range data {
		if o.Species == species {
			days[entities.Day(o.Date)] = struct{}{}
		}
	}
	return len(days)
}

// FrequencyDaysSeen is AbundanceDaysSeen divided by TotalValidDays
func (c *Calculator) FrequencyDaysSeen(data []entities.Observation, species string) float64 {
	return float64(c.AbundanceDaysSeen(data, species)) / float64(c.cfg.TotalValidDays)
}

// FrequencyOverAllDays is AbundanceDaysSeen divided by TotalDays, including
// days dropped by data cleaning
func (c *Calculator) FrequencyOverAllDays(data []entities.Observation, species string) float64 {
	return float64(c.AbundanceDaysSeen(data, species)) / float64(c.cfg.TotalDays)
}
