package nade

import "math"

// ClipValue limits v to [lo, hi]. NaN maps to lo.
func ClipValue(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Clip returns a copy of values with every element limited to [lo, hi].
func Clip(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = ClipValue(v, lo, hi)
	}
	return out
}
