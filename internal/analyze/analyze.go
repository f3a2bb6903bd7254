// Package analyze computes statistical summaries and trend analysis over
// aggregated emissions series. All functions are pure; no I/O.
package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/derickschaefer/emissions/internal/model"
)

// ─── Summary ──────────────────────────────────────────────────────────────────

// Summary holds descriptive statistics for a series.
type Summary struct {
	Series     string  `json:"series"`
	Count      int     `json:"count"`       // total points
	Missing    int     `json:"missing"`     // undefined points
	MissingPct float64 `json:"missing_pct"` // percent missing
	FirstYear  int     `json:"first_year"`
	LastYear   int     `json:"last_year"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	P25        float64 `json:"p25"`
	Median     float64 `json:"median"`
	P75        float64 `json:"p75"`
	Max        float64 `json:"max"`
	Skew       float64 `json:"skew"`
	First      float64 `json:"first"`      // first defined value
	Last       float64 `json:"last"`       // last defined value
	Change     float64 `json:"change"`     // Last - First
	ChangePct  float64 `json:"change_pct"` // (Last-First)/|First| * 100
}

// Summarize computes descriptive statistics over points, which are expected
// in ascending year order. Undefined values are excluded from all numeric
// computations but counted.
func Summarize(label string, points []model.SeriesPoint) Summary {
	s := Summary{Series: label, Count: len(points)}
	var vals []float64
	for _, p := range points {
		if !p.Defined() {
			s.Missing++
			continue
		}
		if len(vals) == 0 {
			s.FirstYear = p.Year
			s.First = p.Value
		}
		s.LastYear = p.Year
		s.Last = p.Value
		vals = append(vals, p.Value)
	}
	if s.Count > 0 {
		s.MissingPct = float64(s.Missing) / float64(s.Count) * 100
	}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Max = nan, nan, nan, nan
		s.Median, s.P25, s.P75, s.Skew = nan, nan, nan, nan
		s.First, s.Last, s.Change, s.ChangePct = nan, nan, nan, nan
		return s
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = sumF(vals) / float64(len(vals))
	s.Std = stddevF(vals, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)
	s.Skew = skewness(vals, s.Mean, s.Std)

	s.Change = s.Last - s.First
	if s.First != 0 {
		s.ChangePct = s.Change / math.Abs(s.First) * 100
	} else {
		s.ChangePct = math.NaN()
	}
	return s
}

// MarshalJSON writes NaN statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Series     string   `json:"series"`
		Count      int      `json:"count"`
		Missing    int      `json:"missing"`
		MissingPct float64  `json:"missing_pct"`
		FirstYear  int      `json:"first_year"`
		LastYear   int      `json:"last_year"`
		Mean       *float64 `json:"mean"`
		Std        *float64 `json:"std"`
		Min        *float64 `json:"min"`
		P25        *float64 `json:"p25"`
		Median     *float64 `json:"median"`
		P75        *float64 `json:"p75"`
		Max        *float64 `json:"max"`
		Skew       *float64 `json:"skew"`
		First      *float64 `json:"first"`
		Last       *float64 `json:"last"`
		Change     *float64 `json:"change"`
		ChangePct  *float64 `json:"change_pct"`
	}{
		s.Series, s.Count, s.Missing, s.MissingPct, s.FirstYear, s.LastYear,
		nullable(s.Mean), nullable(s.Std), nullable(s.Min), nullable(s.P25),
		nullable(s.Median), nullable(s.P75), nullable(s.Max), nullable(s.Skew),
		nullable(s.First), nullable(s.Last), nullable(s.Change), nullable(s.ChangePct),
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ─── Trend ────────────────────────────────────────────────────────────────────

// TrendMethod selects the regression algorithm.
type TrendMethod string

const (
	TrendLinear   TrendMethod = "linear"
	TrendTheilSen TrendMethod = "theil-sen"
)

// ErrUnknownMethod is returned by ParseMethod.
var ErrUnknownMethod = errors.New("unknown trend method")

// ParseMethod validates a --method flag value.
func ParseMethod(s string) (TrendMethod, error) {
	switch TrendMethod(s) {
	case TrendLinear, "":
		return TrendLinear, nil
	case TrendTheilSen:
		return TrendTheilSen, nil
	}
	return "", fmt.Errorf("%w %q (want linear or theil-sen)", ErrUnknownMethod, s)
}

// TrendResult holds the output of a trend analysis.
type TrendResult struct {
	Series    string      `json:"series"`
	Method    TrendMethod `json:"method"`
	Slope     float64     `json:"slope"`     // units per year
	Intercept float64     `json:"intercept"` // fitted value at the first year
	R2        float64     `json:"r2"`
	Direction string      `json:"direction"` // "up", "down", "flat"
}

// Trend fits a trend line to the points. X values are years since the first
// defined point. Undefined points are excluded.
func Trend(label string, points []model.SeriesPoint, method TrendMethod) (TrendResult, error) {
	tr := TrendResult{Series: label, Method: method}

	var pts []point
	var y0 int
	for _, p := range points {
		if !p.Defined() {
			continue
		}
		if len(pts) == 0 {
			y0 = p.Year
		}
		pts = append(pts, point{float64(p.Year - y0), p.Value})
	}
	if len(pts) < 2 {
		return tr, fmt.Errorf("trend: need at least 2 defined points, got %d", len(pts))
	}

	switch method {
	case TrendTheilSen:
		tr.Slope = theilSenSlope(pts)
		// OLS intercept with the Theil-Sen slope
		xMean := meanPts(pts, func(p point) float64 { return p.x })
		yMean := meanPts(pts, func(p point) float64 { return p.y })
		tr.Intercept = yMean - tr.Slope*xMean
	default:
		tr.Slope, tr.Intercept = olsRegress(pts)
	}

	tr.R2 = r2(pts, tr.Slope, tr.Intercept)

	switch {
	case tr.Slope > 0.01:
		tr.Direction = "up"
	case tr.Slope < -0.01:
		tr.Direction = "down"
	default:
		tr.Direction = "flat"
	}
	return tr, nil
}

// ─── Report ───────────────────────────────────────────────────────────────────

// Report pairs a series summary with its trend. Trend is nil when the
// series has fewer than two defined points.
type Report struct {
	Summary Summary      `json:"summary"`
	Trend   *TrendResult `json:"trend,omitempty"`
}

// Analyze summarises every series and fits a trend where possible.
func Analyze(series []model.Series, method TrendMethod) []Report {
	out := make([]Report, 0, len(series))
	for _, s := range series {
		r := Report{Summary: Summarize(s.Label, s.Points)}
		if tr, err := Trend(s.Label, s.Points, method); err == nil {
			r.Trend = &tr
		}
		out = append(out, r)
	}
	return out
}

// ─── Math helpers ─────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func skewness(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d
	}
	return s * n / ((n - 1) * (n - 2))
}

type point struct{ x, y float64 }

func olsRegress(pts []point) (slope, intercept float64) {
	n := float64(len(pts))
	var xSum, ySum, xySum, x2Sum float64
	for _, p := range pts {
		xSum += p.x
		ySum += p.y
		xySum += p.x * p.y
		x2Sum += p.x * p.x
	}
	denom := n*x2Sum - xSum*xSum
	if denom == 0 {
		return 0, ySum / n
	}
	slope = (n*xySum - xSum*ySum) / denom
	intercept = (ySum - slope*xSum) / n
	return
}

func theilSenSlope(pts []point) float64 {
	var slopes []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dx := pts[j].x - pts[i].x
			if dx == 0 {
				continue
			}
			slopes = append(slopes, (pts[j].y-pts[i].y)/dx)
		}
	}
	if len(slopes) == 0 {
		return 0
	}
	sort.Float64s(slopes)
	return percentile(slopes, 50)
}

func r2(pts []point, slope, intercept float64) float64 {
	var yMean float64
	for _, p := range pts {
		yMean += p.y
	}
	yMean /= float64(len(pts))

	var ssTot, ssRes float64
	for _, p := range pts {
		pred := slope*p.x + intercept
		ssTot += (p.y - yMean) * (p.y - yMean)
		ssRes += (p.y - pred) * (p.y - pred)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func meanPts(pts []point, f func(point) float64) float64 {
	var s float64
	for _, p := range pts {
		s += f(p)
	}
	return s / float64(len(pts))
}
