// Package util provides shared utilities: numeric coercion of CSV fields,
// value formatting, code normalisation and error collection.
package util

import (
	"math"
	"strconv"
	"strings"
)

// ─── Number Coercion ──────────────────────────────────────────────────────────

// Number coerces a raw text field the way the source data has always been
// read: surrounding whitespace is ignored, an empty field is zero, hex
// literals ("0x1F") and "Infinity" are accepted, anything else that is not a
// plain decimal number is NaN.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X' || s[1] == 'o' || s[1] == 'O' || s[1] == 'b' || s[1] == 'B') {
		n, err := strconv.ParseUint(s[2:], baseOf(s[1]), 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	// strconv accepts forms the source reader never did.
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(s, "_") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func baseOf(c byte) int {
	switch c {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	default:
		return 2
	}
}

// Truthy reports whether a coerced number counts as present: zero and NaN
// do not.
func Truthy(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

// ─── Formatting ───────────────────────────────────────────────────────────────

// FormatValue formats a float64 for display, showing "." for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatFixed formats v with exactly two decimals, as shown in tooltips.
func FormatFixed(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ─── Codes ────────────────────────────────────────────────────────────────────

// NormaliseCodes upper-cases country codes, splits comma-separated entries
// and removes duplicates while preserving order.
func NormaliseCodes(codes []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		for _, part := range strings.Split(c, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	return out
}

// ─── Error Helpers ────────────────────────────────────────────────────────────

// MultiError collects multiple errors and presents them as one.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}
