package threemf

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders value with at most precision decimals, dropping
// trailing zeros and a trailing decimal point. Whole numbers come out without
// a decimal point, so 0.1 at precision 0 is "0", not "0.0". Output is never
// in exponent notation. NaN and infinities have no 3MF form and come out as
// "0".
func FormatNumber(value float64, precision int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0"
	}
	if precision < 0 {
		precision = 0
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}
