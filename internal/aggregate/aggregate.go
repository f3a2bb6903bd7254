// Package aggregate implements the stateless operators that turn a slice of
// Observations into plotted series. Each operator is a pure function; no side
// effects, no I/O.
package aggregate

import (
	"math"
	"sort"

	"github.com/derickschaefer/emissions/internal/model"
)

// ─── Filter ───────────────────────────────────────────────────────────────────

// FilterByCountries returns the observations whose country code is in codes,
// preserving their original relative order.
func FilterByCountries(obs []model.Observation, codes []string) []model.Observation {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	out := make([]model.Observation, 0)
	for _, o := range obs {
		if _, ok := set[o.CountryCode]; ok {
			out = append(out, o)
		}
	}
	return out
}

// ─── Aggregate ────────────────────────────────────────────────────────────────

// AggregateByYear groups observations by year and sums their values.
// Points are returned in ascending year order. An empty input yields an
// empty, non-nil slice.
func AggregateByYear(obs []model.Observation) []model.SeriesPoint {
	sums := make(map[int]float64)
	for _, o := range obs {
		sums[o.Year] += o.Value
	}
	out := make([]model.SeriesPoint, 0, len(sums))
	for y, v := range sums {
		out = append(out, model.SeriesPoint{Year: y, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// ─── Group ────────────────────────────────────────────────────────────────────

// Group holds one country's observations as plotted points.
type Group struct {
	Code   string
	Points []model.SeriesPoint
}

// GroupByCountry partitions observations by country. Groups appear in the
// order their code is first seen; within a group points are sorted by year
// (stable, so duplicate years keep input order).
func GroupByCountry(obs []model.Observation) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, o := range obs {
		i, ok := index[o.CountryCode]
		if !ok {
			i = len(groups)
			index[o.CountryCode] = i
			groups = append(groups, Group{Code: o.CountryCode})
		}
		groups[i].Points = append(groups[i].Points, model.SeriesPoint{Year: o.Year, Value: o.Value})
	}
	for _, g := range groups {
		pts := g.Points
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Year < pts[j].Year })
	}
	return groups
}

// ─── Extent ───────────────────────────────────────────────────────────────────

// Extent returns the smallest and largest defined values in points.
// ok is false when no point has a defined value.
func Extent(points []model.SeriesPoint) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if !p.Defined() {
			continue
		}
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
		ok = true
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}

// ExtentAll is Extent over several point slices.
func ExtentAll(sets ...[]model.SeriesPoint) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, pts := range sets {
		l, h, k := Extent(pts)
		if !k {
			continue
		}
		lo = math.Min(lo, l)
		hi = math.Max(hi, h)
		ok = true
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}
