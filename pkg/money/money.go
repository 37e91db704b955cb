// Package money canonicalizes free-form numeric input into the fixed
// two-decimal strings used everywhere money crosses an API boundary.
// These helpers sit on the hot path of live typing, so they never return
// errors: unparsable input degrades to "0.00" and one unit.
package money

import (
	"math"
	"strconv"
	"strings"
)

// Format renders v as a fixed-point decimal with exactly two digits.
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Parse reads a money string, returning 0 for anything unparsable.
func Parse(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Normalize canonicalizes s to a two-decimal money string. Non-numeric
// input becomes "0.00"; negative values pass through unchanged (range
// validation is the caller's concern).
func Normalize(s string) string {
	return Format(Parse(s))
}

// Round2 rounds v to two decimals the way Format would render it.
func Round2(v float64) float64 {
	return Parse(Format(v))
}

// ParseUnits reads a unit count, coercing anything that is not a positive
// integer to 1 so per-unit division never sees a zero denominator.
func ParseUnits(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ClampUnits floors an already-parsed count at 1.
func ClampUnits(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
