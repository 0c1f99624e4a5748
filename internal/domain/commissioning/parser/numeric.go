package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber coerces cell text to a number, ignoring thousands separators,
// percent signs and whitespace. Blank or unparseable text reports false.
func ParseNumber(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if r == ',' || r == '%' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
