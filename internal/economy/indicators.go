// Package economy provides aggregate macro indicators computed from per-tick
// accumulators: inequality, growth, and reporting precision.
package economy

import (
	"math"
	"sort"
)

// Gini returns the Gini coefficient of values (0 = perfect equality).
// Empty or all-zero input yields 0. values is not modified.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum, cumulative := 0.0, 0.0
	for i, v := range sorted {
		sum += v
		cumulative += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	g := 2*cumulative/(float64(n)*sum) - float64(n+1)/float64(n)
	// Equal inputs can land a hair below zero in floating point.
	if g < 0 {
		g = 0
	}
	return g
}

// GrowthRate returns the percentage change from prev to cur.
// Without a usable previous value (absent or zero) growth is 0.
func GrowthRate(prev, cur float64, hasPrev bool) float64 {
	if !hasPrev || prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Reporting precision for emitted metrics.
const (
	GrowthPlaces = 2
	GiniPlaces   = 3
	ProfitPlaces = 2
	MacroPlaces  = 3
)
