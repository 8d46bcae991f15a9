package format

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Placeholder is shown for values that cannot be rendered.
const Placeholder = "—"

// Fixed formats x with exactly digits decimals.
//
// Rounding works on the exact binary value of x, and a value exactly halfway
// between two candidates rounds away from zero. 1.005 is stored as
// 1.00499999999999989... so it becomes "1.00", while 0.125 becomes "0.13".
func Fixed(x float64, digits int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	if digits < 0 {
		digits = 0
	}

	neg := x < 0
	if neg {
		x = -x
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom())

	s := n.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Percent renders an uptime percentage with two decimals.
// Values at or above 99.995 are pinned to "100.00%"; non-finite values
// render as the placeholder.
func Percent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Placeholder
	}
	if p >= 99.995 {
		return "100.00%"
	}
	return Fixed(p, 2) + "%"
}

// PercentPtr is Percent for optional values; nil renders as the placeholder.
func PercentPtr(p *float64) string {
	if p == nil {
		return Placeholder
	}
	return Percent(*p)
}

// DotPercent renders a bucket percentage with one decimal ("97.5%", "100.0%").
func DotPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Placeholder
	}
	return Fixed(p, 1) + "%"
}

// Number renders a metric in its shortest decimal form ("42", "12.5").
func Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
