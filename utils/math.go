package utils

import "math"

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// AtLeast returns v, or min when v is smaller or NaN.
func AtLeast(v, min float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	return v
}
