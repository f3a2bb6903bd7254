// Package transform derives new series from yearly series points: changes
// against earlier years, indexing to a base year, and rolling windows. Each
// operator is a pure function.
package transform

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/derickschaefer/emissions/internal/model"
)

// ErrUnknownOp is returned by Parse for operator names it does not know.
var ErrUnknownOp = errors.New("unknown transform")

// ─── Percent Change ───────────────────────────────────────────────────────────

// PctChange computes (v[y] - v[y-years]) / |v[y-years]| * 100 for every year
// y whose earlier year is present. Years without a counterpart are dropped.
// A zero earlier value yields NaN.
func PctChange(points []model.SeriesPoint, years int) ([]model.SeriesPoint, error) {
	if years < 1 {
		return nil, fmt.Errorf("pct: years must be >= 1, got %d", years)
	}
	byYear := index(points)
	var out []model.SeriesPoint
	for _, p := range points {
		prev, ok := byYear[p.Year-years]
		if !ok {
			continue
		}
		val := math.NaN()
		if prev != 0 && !math.IsNaN(prev) && !math.IsNaN(p.Value) {
			val = (p.Value - prev) / math.Abs(prev) * 100
		}
		out = append(out, model.SeriesPoint{Year: p.Year, Value: val})
	}
	return out, nil
}

// ─── Difference ───────────────────────────────────────────────────────────────

// Diff computes v[y] - v[y-years], dropping years without a counterpart.
func Diff(points []model.SeriesPoint, years int) ([]model.SeriesPoint, error) {
	if years < 1 {
		return nil, fmt.Errorf("diff: years must be >= 1, got %d", years)
	}
	byYear := index(points)
	var out []model.SeriesPoint
	for _, p := range points {
		if prev, ok := byYear[p.Year-years]; ok {
			out = append(out, model.SeriesPoint{Year: p.Year, Value: p.Value - prev})
		}
	}
	return out, nil
}

// ─── Index ────────────────────────────────────────────────────────────────────

// Index rescales the series so that its value in baseYear becomes 100.
func Index(points []model.SeriesPoint, baseYear int) ([]model.SeriesPoint, error) {
	anchor, ok := index(points)[baseYear]
	switch {
	case !ok:
		return nil, fmt.Errorf("index: base year %d not in series", baseYear)
	case anchor == 0 || math.IsNaN(anchor):
		return nil, fmt.Errorf("index: base year %d has no usable value", baseYear)
	}
	out := make([]model.SeriesPoint, len(points))
	for i, p := range points {
		out[i] = model.SeriesPoint{Year: p.Year, Value: p.Value / anchor * 100}
	}
	return out, nil
}

// ─── Rolling ──────────────────────────────────────────────────────────────────

// RollStat selects the statistic of a rolling window.
type RollStat string

const (
	RollMean RollStat = "mean"
	RollSum  RollStat = "sum"
	RollMin  RollStat = "min"
	RollMax  RollStat = "max"
)

// Roll computes stat over the window of years [y-window+1, y] for every point.
// Missing years shrink the window rather than failing.
func Roll(points []model.SeriesPoint, window int, stat RollStat) ([]model.SeriesPoint, error) {
	if window < 1 {
		return nil, fmt.Errorf("roll: window must be >= 1, got %d", window)
	}
	switch stat {
	case RollMean, RollSum, RollMin, RollMax:
	default:
		return nil, fmt.Errorf("roll: unknown stat %q (use mean, sum, min, max)", stat)
	}
	out := make([]model.SeriesPoint, len(points))
	for i, p := range points {
		var vals []float64
		for _, q := range points {
			if q.Year > p.Year-window && q.Year <= p.Year && !math.IsNaN(q.Value) {
				vals = append(vals, q.Value)
			}
		}
		out[i] = model.SeriesPoint{Year: p.Year, Value: rollValue(vals, stat)}
	}
	return out, nil
}

func rollValue(vals []float64, stat RollStat) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	switch stat {
	case RollSum:
		return sum(vals)
	case RollMin:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Min(m, v)
		}
		return m
	case RollMax:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Max(m, v)
		}
		return m
	}
	return sum(vals) / float64(len(vals))
}

// ─── Parse ────────────────────────────────────────────────────────────────────

// Op is a parsed transform ready to apply to a series.
type Op struct {
	Name  string
	apply func([]model.SeriesPoint) ([]model.SeriesPoint, error)
}

// Apply runs the transform on points.
func (o Op) Apply(points []model.SeriesPoint) ([]model.SeriesPoint, error) {
	return o.apply(points)
}

// Parse reads a transform written as name or name:arg, e.g. "pct",
// "diff:5", "index:1990", "roll:3" or "roll:5:max".
func Parse(s string) (Op, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	name := parts[0]
	arg := func(i, def int) (int, error) {
		if len(parts) <= i || parts[i] == "" {
			return def, nil
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("%s: expected an integer, got %q", name, parts[i])
		}
		return n, nil
	}

	switch name {
	case "pct", "diff":
		years, err := arg(1, 1)
		if err != nil {
			return Op{}, err
		}
		fn := PctChange
		if name == "diff" {
			fn = Diff
		}
		return Op{Name: s, apply: func(p []model.SeriesPoint) ([]model.SeriesPoint, error) { return fn(p, years) }}, nil
	case "index":
		if len(parts) < 2 {
			return Op{}, fmt.Errorf("index: base year required, e.g. index:1990")
		}
		year, err := arg(1, 0)
		if err != nil {
			return Op{}, err
		}
		return Op{Name: s, apply: func(p []model.SeriesPoint) ([]model.SeriesPoint, error) { return Index(p, year) }}, nil
	case "roll":
		window, err := arg(1, 3)
		if err != nil {
			return Op{}, err
		}
		stat := RollMean
		if len(parts) > 2 {
			stat = RollStat(parts[2])
		}
		if _, err := Roll(nil, window, stat); err != nil {
			return Op{}, err
		}
		return Op{Name: s, apply: func(p []model.SeriesPoint) ([]model.SeriesPoint, error) { return Roll(p, window, stat) }}, nil
	}
	return Op{}, fmt.Errorf("%w %q (use pct, diff, index:YEAR, roll)", ErrUnknownOp, name)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func index(points []model.SeriesPoint) map[int]float64 {
	m := make(map[int]float64, len(points))
	for _, p := range points {
		m[p.Year] = p.Value
	}
	return m
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}
