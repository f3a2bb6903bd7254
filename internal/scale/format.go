package scale

import (
	"math"
	"strconv"
	"strings"
)

// FormatTick renders a tick value with as many decimals as step needs and
// thousands separators, e.g. 12000 -> "12,000", 0.25 (step 0.05) -> "0.25".
func FormatTick(v, step float64) string {
	decimals := 0
	for step > 0 && decimals < 10 && !whole(step*math.Pow10(decimals)) {
		decimals++
	}
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	return group(s)
}

func whole(v float64) bool {
	return math.Abs(v-math.Round(v)) < 1e-9
}

// FormatYear renders a year tick without separators.
func FormatYear(year int) string {
	return strconv.Itoa(year)
}

func group(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	if neg {
		return "-" + intPart + frac
	}
	return intPart + frac
}
