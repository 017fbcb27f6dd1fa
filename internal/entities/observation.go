// Package entities contains the core domain objects for the bird survey application
package entities

import (
	"time"
)

// DateLayout is the canonical day format used for survey dates
const DateLayout = "2006-01-02"

// Observation represents a single row of a point count survey
type Observation struct {
	ID          int64
	Date        time.Time // Survey day, truncated to midnight UTC
	Species     string    // Species identifier as recorded in the field
	Individuals int       // Number of individuals counted
	Site        string    // Point count site, optional
	Observer    string    // Observer initials, optional
}

// Day normalizes t to midnight UTC so observations on the same calendar day compare equal
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayKey returns the YYYY-MM-DD key for the observation date
func (o Observation) DayKey() string {
	return o.Date.Format(DateLayout)
}

// ParseDay parses a YYYY-MM-DD string into a survey day
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
