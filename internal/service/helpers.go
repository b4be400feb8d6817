package service

import "math"

// RoundingPrecision is the divisor/multiplier used for two-decimal rounding
// of presentation values (percentages, scores).
const RoundingPrecision = 100.0

// round rounds a float64 value to two decimal places. Monetary amounts stay
// exact decimals end to end; this is only for presentation fields.
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}
