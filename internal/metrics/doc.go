// Package metrics derives completeness and diversity statistics from bird
// survey observation tables
//
// All functions are methods on Calculator and are pure: they read the
// caller's []entities.Observation and build only function-local maps, so one
// Calculator may be shared by concurrent callers over the same table
//
// Completeness is the share of the maximum daily survey effort realized on a
// date. Abundance counts distinct days a species was seen; frequency divides
// that by the number of valid survey days
//
// Diversity indices operate on per-species counts for a day, with rows for the
// same species summed first:
//
//	Simpson = 1 - Σ n(n-1) / (N(N-1))
//	Shannon = -Σ p·ln(p),  p = n/N
//	Alpha   = 1 / Simpson
//	Beta    = 2·Σ min(a, b) / Σ (a + b)
//
// Simpson with N ≤ 1 and Beta over two empty days return ErrZeroDivision.
// Alpha reports "no value" (ok == false) when Simpson is exactly zero
package metrics
