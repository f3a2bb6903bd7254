// Package scale maps years and values to pixel positions inside the plot
// area and assigns series colors.
//
// Two horizontal strategies are provided. Linear maps calendar time
// proportionally; Skewed inverts the year axis (most recent year at the left
// edge) and applies a power-law remap that compresses older years. Both are
// built on go-moremath's linear scale so degenerate domains behave the same
// way in every chart.
package scale

import (
	"math"

	"github.com/aclements/go-moremath/scale"

	"github.com/derickschaefer/emissions/internal/model"
)

// SkewExponent is the power applied by the skewed year scale.
const SkewExponent = 1.2

// DefaultTickCount is the target number of ticks on linear axes.
const DefaultTickCount = 10

// ─── Layout ───────────────────────────────────────────────────────────────────

// Layout is the outer drawing size and the margins around the plot area.
type Layout struct {
	Width  int
	Height int
	Margin model.Margin
}

// DefaultLayout is a 900x500 drawing with a 700x380 plot area.
func DefaultLayout() Layout {
	return Layout{
		Width:  900,
		Height: 500,
		Margin: model.Margin{Top: 60, Right: 130, Bottom: 60, Left: 70},
	}
}

// PlotWidth returns the width of the plot area, never negative.
func (l Layout) PlotWidth() float64 {
	return math.Max(0, float64(l.Width-l.Margin.Left-l.Margin.Right))
}

// PlotHeight returns the height of the plot area, never negative.
func (l Layout) PlotHeight() float64 {
	return math.Max(0, float64(l.Height-l.Margin.Top-l.Margin.Bottom))
}

// ─── X Scales ─────────────────────────────────────────────────────────────────

// XScale maps a year to a horizontal pixel offset inside the plot area.
type XScale interface {
	MapYear(year int) float64
	Ticks() []int
	Name() string
}

// Linear maps [minYear, maxYear] onto [0, width].
type Linear struct {
	s     scale.Linear
	width float64
}

// NewLinear returns a linear year scale. A single-year domain maps to the
// middle of the range.
func NewLinear(minYear, maxYear int, width float64) *Linear {
	return &Linear{s: scale.Linear{Min: float64(minYear), Max: float64(maxYear)}, width: width}
}

func (l *Linear) Name() string { return "linear" }

func (l *Linear) MapYear(year int) float64 {
	return l.s.Map(float64(year)) * l.width
}

// Ticks returns nice, whole-year tick positions.
func (l *Linear) Ticks() []int {
	major, _ := l.s.Ticks(scale.TickOptions{Max: DefaultTickCount})
	out := make([]int, 0, len(major))
	for _, v := range major {
		if v == math.Trunc(v) {
			out = append(out, int(v))
		}
	}
	return out
}

// Skewed maps maxYear to 0 and minYear to width along t^SkewExponent, where
// t is the year's normalised distance from maxYear.
type Skewed struct {
	norm       scale.Linear
	width      float64
	minY, maxY int
}

// NewSkewed returns the power-law year scale. A single-year domain
// normalises to 0.5 before the power remap.
func NewSkewed(minYear, maxYear int, width float64) *Skewed {
	return &Skewed{
		norm:  scale.Linear{Min: float64(maxYear), Max: float64(minYear)},
		width: width,
		minY:  minYear,
		maxY:  maxYear,
	}
}

func (s *Skewed) Name() string { return "skewed" }

func (s *Skewed) MapYear(year int) float64 {
	return signedPow(s.norm.Map(float64(year)), SkewExponent) * s.width
}

// Ticks returns every year in the domain.
func (s *Skewed) Ticks() []int {
	if s.maxY < s.minY {
		return nil
	}
	out := make([]int, 0, s.maxY-s.minY+1)
	for y := s.minY; y <= s.maxY; y++ {
		out = append(out, y)
	}
	return out
}

// signedPow raises |t| to k and restores the sign, so years outside the
// domain extrapolate symmetrically.
func signedPow(t, k float64) float64 {
	if t < 0 {
		return -math.Pow(-t, k)
	}
	return math.Pow(t, k)
}

// NewX returns the x scale named kind ("linear" or "skewed").
func NewX(kind string, minYear, maxYear int, width float64) XScale {
	if kind == "skewed" {
		return NewSkewed(minYear, maxYear, width)
	}
	return NewLinear(minYear, maxYear, width)
}
