package chart

import (
	"fmt"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo/float"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/util"
)

// ─── SVG ──────────────────────────────────────────────────────────────────────

// SVG writes f as a standalone SVG document. Every country point carries a
// <title> tooltip with its country, year and value.
func SVG(w io.Writer, f *model.RenderFrame) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(float64(f.OuterWidth()), float64(f.OuterHeight()), `font-family="sans-serif"`)
	canvas.Translate(float64(f.Margin.Left), float64(f.Margin.Top))

	width, height := float64(f.Width), float64(f.Height)
	svgYAxis(canvas, f.YAxis, height)
	svgXAxis(canvas, f.XAxis, width, height)

	canvas.Text(width/2, height+40, f.XAxis.Title, "text-anchor:middle;font-size:14px")
	canvas.Text(-height/2, -50, f.YAxis.Title, `transform="rotate(-90)"`, "text-anchor:middle;font-size:14px")
	canvas.Text(width/2, -30, f.Title, "text-anchor:middle;font-size:18px;font-weight:bold")

	for _, s := range f.Series {
		svgSeries(canvas, s)
	}

	canvas.Gend()
	canvas.End()
	return ew.err
}

// svgYAxis draws the domain line over the full plot height, even when the
// nice ticks stop short of it.
func svgYAxis(canvas *svg.SVG, axis model.Axis, height float64) {
	canvas.Group(`class="y-axis"`, "font-size:10px")
	canvas.Line(0, 0, 0, height, `class="domain"`, "stroke:black")
	for _, t := range axis.Ticks {
		canvas.Line(-6, t.Pos, 0, t.Pos, "stroke:black")
		canvas.Text(-9, t.Pos+3, t.Text, "text-anchor:end")
	}
	canvas.Gend()
}

func svgXAxis(canvas *svg.SVG, axis model.Axis, width, height float64) {
	font := axis.FontSize
	if font <= 0 {
		font = 10
	}
	canvas.Group(`class="x-axis"`, fmt.Sprintf(`transform="translate(0,%g)"`, height), fmt.Sprintf("font-size:%dpx", font))
	canvas.Line(0, 0, width, 0, "stroke:black")
	for _, t := range axis.Ticks {
		canvas.Line(t.Pos, 0, t.Pos, 6, "stroke:black")
		canvas.Text(t.Pos, 20, t.Text, "text-anchor:middle")
	}
	canvas.Gend()
}

func svgSeries(canvas *svg.SVG, s model.PlottedSeries) {
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", s.Color)
	if s.Dashed {
		style += ";stroke-dasharray:5,2"
	}
	if d := pathData(s.Plot); d != "" {
		canvas.Path(d, style, fmt.Sprintf(`class="series %s"`, s.Kind))
	}
	if s.Dots {
		for _, p := range s.Plot {
			if !p.Defined() {
				continue
			}
			canvas.Group(`class="point"`)
			canvas.Circle(p.X, p.Y, 3, "fill:"+s.Color)
			canvas.Title(Tooltip(s.Series.Label, p.SeriesPoint))
			canvas.Gend()
		}
	}
	if l := s.Label; l != nil {
		styles := []string{fmt.Sprintf(`fill="%s"`, s.Color), "font-size:12px"}
		if l.Anchor != "" {
			styles = append(styles, fmt.Sprintf(`text-anchor="%s"`, l.Anchor))
		}
		canvas.Text(l.X, l.Y, l.Text, styles...)
	}
}

// pathData builds the path "d" attribute. Undefined points split the line
// into separate subpaths.
func pathData(points []model.PlotPoint) string {
	var b strings.Builder
	move := true
	for _, p := range points {
		if !p.Defined() {
			move = true
			continue
		}
		cmd := "L"
		if move {
			cmd = "M"
			move = false
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s%.2f,%.2f", cmd, p.X, p.Y)
	}
	return b.String()
}

// Tooltip is the hover text of one country point.
func Tooltip(code string, p model.SeriesPoint) string {
	return fmt.Sprintf("Country: %s\nYear: %d\nValue: %s", code, p.Year, util.FormatFixed(p.Value))
}

// errWriter keeps the first write error so drawing code need not check each call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
