package scale

import (
	"math"

	"github.com/aclements/go-moremath/scale"
)

// ─── Y Scale ──────────────────────────────────────────────────────────────────

// YScale maps a value domain onto [height, 0] so larger values plot higher.
type YScale struct {
	s      scale.Linear
	height float64
}

// NewY returns a value scale over [lo, hi]. With nice set, the bounds are
// widened outward to round tick values.
func NewY(lo, hi, height float64, nice bool) *YScale {
	s := scale.Linear{Min: lo, Max: hi}
	if nice && lo != hi {
		desc := lo > hi
		if desc {
			s.Min, s.Max = hi, lo
		}
		s.Nice(scale.TickOptions{Max: DefaultTickCount})
		if desc {
			s.Min, s.Max = s.Max, s.Min
		}
	}
	return &YScale{s: s, height: height}
}

// Map returns the pixel offset of v from the top of the plot area.
func (y *YScale) Map(v float64) float64 {
	return y.height * (1 - y.s.Map(v))
}

// Domain returns the (possibly niced) bounds.
func (y *YScale) Domain() (lo, hi float64) { return y.s.Min, y.s.Max }

// Ticks returns about DefaultTickCount round values inside the domain.
func (y *YScale) Ticks() []float64 {
	major, _ := y.s.Ticks(scale.TickOptions{Max: DefaultTickCount})
	return major
}

// TickStep returns the spacing between ticks, or 0 with fewer than two.
func (y *YScale) TickStep() float64 {
	t := y.Ticks()
	if len(t) < 2 {
		return 0
	}
	return math.Abs(t[1] - t[0])
}

// ─── Domains ──────────────────────────────────────────────────────────────────

// StandardDomain returns [0, max] over values, with 1 standing in for a
// missing or zero maximum.
func StandardDomain(values []float64) (lo, hi float64) {
	return 0, orOne(maxOf(values))
}

// ProgressDomain returns [0.9 * min, max]. The lower bound considers only
// country observations; the upper bound also covers totals. A missing or
// zero minimum counts as 0 and a missing or zero maximum as 1.
func ProgressDomain(countryValues, totalValues []float64) (lo, hi float64) {
	minV := minOf(countryValues)
	if math.IsNaN(minV) {
		minV = 0
	}
	maxC, maxT := maxOf(countryValues), maxOf(totalValues)
	if math.IsNaN(maxC) {
		maxC = 0
	}
	if math.IsNaN(maxT) {
		maxT = 0
	}
	return minV * 0.9, orOne(math.Max(maxC, maxT))
}

func orOne(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

// minOf and maxOf skip NaN values and return NaN when nothing is left.
func minOf(vs []float64) float64 {
	out := math.NaN()
	for _, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v < out {
			out = v
		}
	}
	return out
}

func maxOf(vs []float64) float64 {
	out := math.NaN()
	for _, v := range vs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(out) || v > out {
			out = v
		}
	}
	return out
}
