package metrics

import "errors"

var (
	// ErrZeroDivision is returned when an index is undefined for the input,
	// e.g. Simpson diversity on a day with fewer than two individuals
	ErrZeroDivision = errors.New("metrics: division by zero")

	// ErrInvalidConfig is returned by Config.Validate and New
	ErrInvalidConfig = errors.New("metrics: invalid config")
)
