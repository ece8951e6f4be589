package stats

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MinMax returns the smallest and largest value
func MinMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}

	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Max returns the largest value, or 0 for an empty slice
func Max(values []float64) float64 {
	_, max := MinMax(values)
	return max
}

// Dedupe collapses runs of equal values in a sorted slice
func Dedupe(sorted []float64) []float64 {
	if len(sorted) == 0 {
		return nil
	}
	out := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v > out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
