package calculator

import (
	"math"
	"strconv"
	"strings"
)

// Round2 rounds v to two decimal places (cents), half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders v with exactly two decimals. Arithmetic keeps full
// precision; rounding happens only here and in the Pfand summary.
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(Round2(v), 'f', 2, 64)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// SanitizeAmount coerces values that cannot be a price or tip to zero:
// negatives, NaN and infinities.
func SanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseAmount converts user-entered text into an amount. Malformed input never
// fails; it becomes 0. A single comma is accepted as the decimal separator
// ("12,50") when the text has no dot.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return SanitizeAmount(v)
}
