// Package util provides common utility functions for price calculations.
package util

import "math"

// Round1 rounds x to one decimal place, the precision used for premium
// levels (breakout, stop-loss, target).
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.05, 1.23 becomes 1.25.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}
