package piezometry

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// toFixed renders v with the given number of decimals, rounding exact ties
// away from zero. Values that are not exact binary ties round to nearest, so
// 1.005 (stored as 1.00499...) still yields "1.00".
func toFixed(v float64, digits int) string {
	if digits < 0 {
		digits = 0
	}
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil))
	scaled := new(big.Rat).Mul(new(big.Rat).SetFloat64(math.Abs(v)), scale)
	if scaled.Denom().Cmp(big.NewInt(2)) != 0 {
		return strconv.FormatFloat(v, 'f', digits, 64)
	}

	// scaled is k + 1/2: round up to k + 1.
	n := new(big.Int).Quo(scaled.Num(), big.NewInt(2))
	n.Add(n, big.NewInt(1))
	s := n.String()
	if digits > 0 {
		if len(s) <= digits {
			s = strings.Repeat("0", digits-len(s)+1) + s
		}
		s = s[:len(s)-digits] + "." + s[len(s)-digits:]
	}
	if v < 0 {
		s = "-" + s
	}
	return s
}

// exportDate renders t as day-month-year and an unpadded 24h clock separated
// by two spaces, e.g. "5-3-2024  9:05:03".
func exportDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d  %d:%02d:%02d", t.Day(), int(t.Month()), t.Year(), t.Hour(), t.Minute(), t.Second())
}
