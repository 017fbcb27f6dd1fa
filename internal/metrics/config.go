package metrics

import "fmt"

// Default constants for the survey season
const (
	DefaultMaxSurveysPerDay = 18
	DefaultTotalValidDays   = 46
	DefaultTotalDays        = 50
)

// Config holds the fixed survey constants used by the calculations
type Config struct {
	// MaxSurveysPerDay is the number of point count sessions logistically
	// possible in one day
	MaxSurveysPerDay int `yaml:"max_surveys_per_day"`

	// TotalValidDays is the number of days kept by upstream data cleaning.
	// It is not recomputed from the observation table
	TotalValidDays int `yaml:"total_valid_days"`

	// TotalDays is the length of the survey season in days
	TotalDays int `yaml:"total_days"`
}

// DefaultConfig returns the constants of the original survey season
func DefaultConfig() Config {
	return Config{
		MaxSurveysPerDay: DefaultMaxSurveysPerDay,
		TotalValidDays:   DefaultTotalValidDays,
		TotalDays:        DefaultTotalDays,
	}
}

// Validate rejects configs that would divide by zero or a negative number
func (c Config) Validate() error {
	if c.MaxSurveysPerDay <= 0 {
		return fmt.Errorf("%w: max_surveys_per_day must be positive, got %d", ErrInvalidConfig, c.MaxSurveysPerDay)
	}
	if c.TotalValidDays <= 0 {
		return fmt.Errorf("%w: total_valid_days must be positive, got %d", ErrInvalidConfig, c.TotalValidDays)
	}
	if c.TotalDays <= 0 {
		return fmt.Errorf("%w: total_days must be positive, got %d", ErrInvalidConfig, c.TotalDays)
	}
	if c.TotalValidDays > c.TotalDays {
		return fmt.Errorf("%w: total_valid_days (%d) exceeds total_days (%d)", ErrInvalidConfig, c.TotalValidDays, c.TotalDays)
	}
	return nil
}
