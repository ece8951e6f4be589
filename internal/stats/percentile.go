package stats

import (
	"math"
	"sort"
)

// Percentile calculates the p-th percentile (0-100)
// Uses linear interpolation between closest ranks
func Percentile(values []float64, p float64) float64 {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return Quantile(values, p/100.0)
}

// Quantile calculates the q-th quantile (0-1) of unsorted values
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return quantileSorted(Sorted(values), q)
}

// EvenQuantiles returns the n+1 boundaries splitting values into n groups of
// roughly equal size. The first boundary is the minimum and the last the maximum.
func EvenQuantiles(values []float64, n int) []float64 {
	if len(values) == 0 || n < 1 {
		return nil
	}

	// Sort once for efficiency
	sorted := Sorted(values)
	bounds := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		bounds[i] = quantileSorted(sorted, float64(i)/float64(n))
	}
	bounds[0] = sorted[0]
	bounds[n] = sorted[len(sorted)-1]
	return bounds
}

// EvenSteps returns the n+1 boundaries splitting [min, max] into n equal-width steps
func EvenSteps(min, max float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	bounds := make([]float64, n+1)
	step := (max - min) / float64(n)
	for i := 0; i < n; i++ {
		bounds[i] = min + float64(i)*step
	}
	bounds[n] = max
	return bounds
}

// Sorted returns a sorted copy of values
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// quantileSorted interpolates the q-th quantile of an already sorted slice
func quantileSorted(sorted []float64, q float64) float64 {
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	n := float64(len(sorted))
	index := q * (n - 1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
