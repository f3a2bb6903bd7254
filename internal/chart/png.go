package chart

import (
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
)

// ─── PNG ──────────────────────────────────────────────────────────────────────

// PNG rasterises f with go-chart. The x axis reuses the frame's year scale,
// so the skewed progress axis keeps its compression of older years.
func PNG(w io.Writer, f *model.RenderFrame) error {
	xs := scale.NewX(f.XScale, int(f.XAxis.Min), int(f.XAxis.Max), float64(f.Width))

	ch := gochart.Chart{
		Title:  f.Title,
		Width:  f.OuterWidth(),
		Height: f.OuterHeight(),
		TitleStyle: gochart.Style{
			FontSize: 14,
		},
		Background: gochart.Style{
			Padding: gochart.Box{
				Top:    f.Margin.Top,
				Left:   20,
				Right:  f.Margin.Right,
				Bottom: 20,
			},
		},
		XAxis: gochart.XAxis{
			Name:      f.XAxis.Title,
			Range:     &yearRange{xs: xs, width: float64(f.Width)},
			Ticks:     xTicks(f.XAxis),
			TickStyle: gochart.Style{FontSize: float64(fontOr(f.XAxis.FontSize, 10))},
		},
		YAxis: gochart.YAxis{
			Name:     f.YAxis.Title,
			Range:    &gochart.ContinuousRange{},
			Ticks:    yTicks(f.YAxis),
		},
	}

	for _, s := range f.Series {
		ch.Series = append(ch.Series, pngSeries(s)...)
	}
	ch.Elements = []gochart.Renderable{endLabels(f)}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("rendering png: %w", err)
	}
	return nil
}

// pngSeries splits s at undefined points. A series with no defined points
// still yields one empty ContinuousSeries so the chart never lacks a series.
func pngSeries(s model.PlottedSeries) []gochart.Series {
	color := parseColor(s.Color)
	style := gochart.Style{
		StrokeColor: color,
		StrokeWidth: 2,
	}
	if s.Dashed {
		style.StrokeDashArray = []float64{5, 2}
	}
	if s.Dots {
		style.DotColor = color
		style.DotWidth = 3
	}

	var out []gochart.Series
	run := &gochart.ContinuousSeries{Name: s.Series.Label, Style: style}
	flush := func() {
		if len(run.XValues) > 0 {
			out = append(out, *run)
		}
		run = &gochart.ContinuousSeries{Name: s.Series.Label, Style: style}
	}
	for _, p := range s.Points {
		if !p.Defined() {
			flush()
			continue
		}
		run.XValues = append(run.XValues, float64(p.Year))
		run.YValues = append(run.YValues, p.Value)
	}
	flush()
	if len(out) == 0 {
		out = append(out, gochart.ContinuousSeries{Name: s.Series.Label, Style: style})
	}
	return out
}

func xTicks(axis model.Axis) []gochart.Tick {
	ticks := make([]gochart.Tick, 0, len(axis.Ticks)+2)
	ticks = append(ticks, gochart.Tick{Value: axis.Min})
	for _, t := range axis.Ticks {
		ticks = append(ticks, gochart.Tick{Value: t.Value, Label: t.Text})
	}
	return append(ticks, gochart.Tick{Value: axis.Max})
}

// yTicks pins the go-chart range to the frame's domain: go-chart derives
// the range from the tick extremes.
func yTicks(axis model.Axis) []gochart.Tick {
	lo, hi := axis.Min, axis.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == lo {
		hi = lo + 1
	}
	ticks := make([]gochart.Tick, 0, len(axis.Ticks)+2)
	ticks = append(ticks, gochart.Tick{Value: lo})
	for _, t := range axis.Ticks {
		ticks = append(ticks, gochart.Tick{Value: t.Value, Label: t.Text})
	}
	return append(ticks, gochart.Tick{Value: hi})
}

// endLabels draws the series end labels, mapping the frame's plot-area
// pixels onto go-chart's final canvas box.
func endLabels(f *model.RenderFrame) gochart.Renderable {
	return func(r gochart.Renderer, box gochart.Box, defaults gochart.Style) {
		if defaults.Font != nil {
			r.SetFont(defaults.Font)
		}
		r.SetFontSize(10)
		for _, s := range f.Series {
			l := s.Label
			if l == nil || f.Width == 0 || f.Height == 0 {
				continue
			}
			x := box.Left + int(math.Round(l.X/float64(f.Width)*float64(box.Width())))
			y := box.Top + int(math.Round(l.Y/float64(f.Height)*float64(box.Height())))
			r.SetFontColor(parseColor(s.Color))
			r.Text(l.Text, x, y)
		}
	}
}

// parseColor accepts "#rgb", "#rrggbb" and the basic CSS names.
func parseColor(s string) drawing.Color {
	if strings.HasPrefix(s, "#") && (len(s) == 4 || len(s) == 7) {
		return drawing.ColorFromHex(s)
	}
	if c := drawing.ColorFromKnown(s); !c.IsZero() {
		return c
	}
	return drawing.ColorBlack
}

func fontOr(size, def int) int {
	if size > 0 {
		return size
	}
	return def
}

// ─── yearRange ────────────────────────────────────────────────────────────────

// yearRange adapts a scale.XScale to go-chart's Range. Values are years;
// Translate maps them through the scale and rescales to the canvas domain.
type yearRange struct {
	xs       scale.XScale
	width    float64
	min, max float64
	domain   int
}

func (r *yearRange) String() string {
	return fmt.Sprintf("yearRange(%s) [%g,%g] => %d", r.xs.Name(), r.min, r.max, r.domain)
}

func (r *yearRange) IsZero() bool { return r.min == 0 && r.max == 0 && r.domain == 0 }
func (r *yearRange) GetMin() float64 { return r.min }
func (r *yearRange) SetMin(min float64) { r.min = min }
func (r *yearRange) GetMax() float64 { return r.max }
func (r *yearRange) SetMax(max float64) { r.max = max }
func (r *yearRange) GetDomain() int { return r.domain }
func (r *yearRange) SetDomain(domain int) { r.domain = domain }
func (r *yearRange) IsDescending() bool { return false }

// GetDelta never reports zero: a single-year dataset is still drawable.
func (r *yearRange) GetDelta() float64 {
	if d := r.max - r.min; d != 0 {
		return d
	}
	return 1
}

func (r *yearRange) Translate(value float64) int {
	if r.width <= 0 {
		return 0
	}
	px := r.xs.MapYear(int(math.Round(value)))
	return int(math.Round(px / r.width * float64(r.domain)))
}
