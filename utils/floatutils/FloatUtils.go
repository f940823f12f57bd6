// Package floatutils holds the float helpers shared by the training
// configuration and the dashboard
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r1"
)

// Unit is the closed interval [0, 1] of probabilities and rates
var Unit = r1.Interval{Min: 0, Max: 1}

// Clip returns value limited to [min, max]
func Clip(value, min, max float64) float64 {
	return math.Max(math.Min(value, max), min)
}

// ClipInterval returns value limited to interval
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// Max returns the largest of its arguments
func Max(values ...float64) float64 {
	if len(values) == 0 {
		panic("max: no values")
	}
	return floats.Max(values)
}

// Round rounds value to places decimal places
func Round(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}

// Nudge adds step to value, rounds the sum to places decimal places so
// that repeated nudges do not accumulate error, and clips the result into
// interval
func Nudge(value, step float64, places int, interval r1.Interval) float64 {
	return ClipInterval(Round(value+step, places), interval)
}
