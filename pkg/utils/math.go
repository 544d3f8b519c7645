package utils

import "math"

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ApproxEqual reports whether a and b differ by less than delta
func ApproxEqual(a, b, delta float64) bool {
	return math.Abs(a-b) < delta
}
