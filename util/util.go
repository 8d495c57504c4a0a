// Package util contains misc internal utilities.
package util

import (
	"math"
	"time"
)

// Clamp restricts v to the closed interval [low, high].
// NaN is passed through unchanged.
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Limiter holds a min and max value
type Limiter struct {
	Min float64 `yaml:"Min" koanf:"Min"`
	Max float64 `yaml:"Max" koanf:"Max"`
}

// Check returns true if min <= v <= max
func (l Limiter) Check(v float64) bool {
	return v >= l.Min && v <= l.Max
}

// SecsToDuration converts a floating point number of seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1e9))
}
