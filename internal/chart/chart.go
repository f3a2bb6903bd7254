// Package chart draws a model.RenderFrame. Three backends are available:
//
//   - SVG: vector output with per-point tooltips, served by the web UI
//   - PNG: raster output through go-chart
//   - ASCII: a terminal grid, one glyph per series
//
// Every backend consumes the same frame, so the pixel positions, labels and
// colours computed by the controller are drawn identically everywhere.
// Bar is a separate helper for a single aggregated series.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/derickschaefer/emissions/internal/model"
)

// Output formats accepted by Render.
const (
	FormatSVG   = "svg"
	FormatPNG   = "png"
	FormatASCII = "ascii"
)

// ErrUnknownFormat is returned by Render for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown chart format")

// Formats lists the chart formats in display order.
func Formats() []string { return []string{FormatSVG, FormatPNG, FormatASCII} }

// Render writes f to w in the named format.
func Render(w io.Writer, f *model.RenderFrame, format string, opts ASCIIOptions) error {
	switch strings.ToLower(format) {
	case FormatSVG:
		return SVG(w, f)
	case FormatPNG:
		return PNG(w, f)
	case FormatASCII, "text", "":
		return ASCII(w, f, opts)
	default:
		return fmt.Errorf("%w %q (want %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// FormatForPath guesses the chart format from an output file extension.
// Unknown extensions return "".
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatSVG
	case ".png":
		return FormatPNG
	case ".txt":
		return FormatASCII
	}
	return ""
}

// ─── ASCII ────────────────────────────────────────────────────────────────────

// ASCIIOptions controls terminal rendering.
type ASCIIOptions struct {
	// Width is the total character width including the y-axis labels.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of rows in the plot body. If 0, defaults to 16.
	Height int
}

// Glyphs used for country series, in draw order. Totals have fixed glyphs.
var (
	countryGlyphs = []rune{'●', '■', '▲', '◆', '★', '○', '□', '△', '◇', '☆'}
	totalGlyphs   = map[model.SeriesKind]rune{
		model.KindTotalSelected: '·',
		model.KindTotalAll:      ':',
		model.KindTotalComplete: '~',
	}
)

// ASCII draws f as a character grid. Positions come from the frame's plot
// coordinates scaled onto the grid, so the skewed axis stays skewed.
//
// Output example:
//
//	Greenhouse Gas Emissions Over Time
//	GHG Emissions (kg CO₂e per capita)
//	   30┤            ·
//	   20┤●●●●●●●●●●●●●
//	    0┤
//	     └─────────────
//	      2018    2020
//	     ● USA  · Total (Selected)
func ASCII(w io.Writer, f *model.RenderFrame, opts ASCIIOptions) error {
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 16
	}

	yLabelWidth := 0
	for _, t := range f.YAxis.Ticks {
		if l := len([]rune(t.Text)); l > yLabelWidth {
			yLabelWidth = l
		}
	}
	plotWidth := width - yLabelWidth - 1
	if plotWidth < 10 {
		plotWidth = 10
	}

	grid := newGrid(height, plotWidth)
	glyphs := seriesGlyphs(f.Series)
	for i, s := range f.Series {
		drawSeries(grid, f, s, glyphs[i])
	}

	fmt.Fprintln(w, f.Title)
	if f.YAxis.Title != "" {
		fmt.Fprintln(w, f.YAxis.Title)
	}

	yLabels := make(map[int]string, len(f.YAxis.Ticks))
	for _, t := range f.YAxis.Ticks {
		yLabels[toRow(t.Pos, f.Height, height)] = t.Text
	}
	for row := 0; row < height; row++ {
		label, ok := yLabels[row]
		axisCh := "┤"
		if !ok {
			axisCh = "│"
		}
		fmt.Fprintf(w, "%*s%s%s\n", yLabelWidth, label, axisCh, string(grid[row]))
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(f, plotWidth))
	if f.XAxis.Title != "" {
		pad := yLabelWidth + 1 + (plotWidth-len([]rune(f.XAxis.Title)))/2
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", pad), f.XAxis.Title)
	}

	if legend := legendLine(f.Series, glyphs); legend != "" {
		fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), legend)
	}
	return nil
}

func seriesGlyphs(series []model.PlottedSeries) []rune {
	out := make([]rune, len(series))
	n := 0
	for i, s := range series {
		if g, ok := totalGlyphs[s.Kind]; ok {
			out[i] = g
			continue
		}
		out[i] = countryGlyphs[n%len(countryGlyphs)]
		n++
	}
	return out
}

func legendLine(series []model.PlottedSeries, glyphs []rune) string {
	var parts []string
	for i, s := range series {
		if len(s.Points) == 0 && s.Kind == model.KindTotalSelected {
			continue
		}
		parts = append(parts, fmt.Sprintf("%c %s", glyphs[i], s.Series.Label))
	}
	return strings.Join(parts, "  ")
}

// ─── Grid building ────────────────────────────────────────────────────────────

func newGrid(rows, cols int) [][]rune {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
	}
	return grid
}

// toRow maps a pixel offset within [0,extent] onto a grid index.
func toRow(pos float64, extent, cells int) int {
	if extent <= 0 || cells <= 1 {
		return 0
	}
	i := int(math.Round(pos / float64(extent) * float64(cells-1)))
	if i < 0 {
		return 0
	}
	if i >= cells {
		return cells - 1
	}
	return i
}

// drawSeries plots each defined point and joins consecutive defined points
// column by column. Undefined points break the line.
func drawSeries(grid [][]rune, f *model.RenderFrame, s model.PlottedSeries, glyph rune) {
	rows, cols := len(grid), len(grid[0])
	prevCol, prevRow := -1, -1
	for _, p := range s.Plot {
		if !p.Defined() {
			prevCol, prevRow = -1, -1
			continue
		}
		col := toRow(p.X, f.Width, cols)
		row := toRow(p.Y, f.Height, rows)
		if prevCol >= 0 {
			connect(grid, prevCol, prevRow, col, row, glyph)
		}
		grid[row][col] = glyph
		prevCol, prevRow = col, row
	}
}

// connect fills the cells between two points, one cell per column plus
// vertical runs where the line jumps more than one row.
func connect(grid [][]rune, c0, r0, c1, r1 int, glyph rune) {
	if c0 > c1 {
		c0, r0, c1, r1 = c1, r1, c0, r0
	}
	lastRow := r0
	for c := c0; c <= c1; c++ {
		r := r0
		if c1 != c0 {
			r = r0 + int(math.Round(float64(r1-r0)*float64(c-c0)/float64(c1-c0)))
		}
		lo, hi := lastRow, r
		if lo > hi {
			lo, hi = hi, lo
		}
		for fill := lo; fill <= hi; fill++ {
			if grid[fill][c] == ' ' {
				grid[fill][c] = glyph
			}
		}
		lastRow = r
	}
	if c0 == c1 {
		lo, hi := r0, r1
		if lo > hi {
			lo, hi = hi, lo
		}
		for fill := lo; fill <= hi; fill++ {
			if grid[fill][c0] == ' ' {
				grid[fill][c0] = glyph
			}
		}
	}
}

// xAxisLabels centres each tick label under its column, skipping labels
// that would overlap the previous one.
func xAxisLabels(f *model.RenderFrame, plotWidth int) string {
	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range []rune(s) {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}

	ticks := append([]model.Tick(nil), f.XAxis.Ticks...)
	// Skewed axes run right to left; write in screen order.
	if n := len(ticks); n > 1 && ticks[0].Pos > ticks[n-1].Pos {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ticks[i], ticks[j] = ticks[j], ticks[i]
		}
	}
	end := -1
	for _, t := range ticks {
		n := len([]rune(t.Text))
		pos := toRow(t.Pos, f.Width, plotWidth) - n/2
		if pos < 0 {
			pos = 0
		}
		if pos+n > plotWidth {
			pos = plotWidth - n
		}
		if pos <= end {
			continue
		}
		writeAt(pos, t.Text)
		end = pos + n
	}
	return strings.TrimRight(string(buf), " ")
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// MaxBars keeps only the most recent years when the series is longer.
	// If 0, no limit is applied.
	MaxBars int
}

// Bar renders one aggregated series as a horizontal bar chart, one bar per
// year. Undefined points are skipped.
//
// Output example:
//
//	Total (Selected)  2018 – 2020
//	2018  30.0  ████████████████████
//	2019  28.0  ██████████████████
//	2020  26.0  █████████████████
func Bar(w io.Writer, label string, points []model.SeriesPoint, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}

	var valid []model.SeriesPoint
	for _, p := range points {
		if p.Defined() {
			valid = append(valid, p)
		}
	}
	if len(valid) < 1 {
		return fmt.Errorf("chart bar: %s has no values to render", label)
	}
	if opts.MaxBars > 0 && len(valid) > opts.MaxBars {
		valid = valid[len(valid)-opts.MaxBars:]
	}

	minVal, maxVal := valid[0].Value, valid[0].Value
	yearWidth, valWidth := 0, 0
	for _, p := range valid {
		minVal = math.Min(minVal, p.Value)
		maxVal = math.Max(maxVal, p.Value)
		if l := len(strconv.Itoa(p.Year)); l > yearWidth {
			yearWidth = l
		}
		if l := len(formatFloat(p.Value)); l > valWidth {
			valWidth = l
		}
	}

	barAreaWidth := totalWidth - yearWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	// Bars grow from zero when every value is positive.
	hasNeg := minVal < 0
	base := 0.0
	if hasNeg {
		base = minVal
	}
	valRange := maxVal - base
	if valRange == 0 {
		valRange = 1
	}
	var zeroPos int
	if hasNeg {
		zeroPos = int(math.Round((-minVal / valRange) * float64(barAreaWidth-1)))
	}

	fmt.Fprintf(w, "%s  %d – %d\n", label, valid[0].Year, valid[len(valid)-1].Year)
	for _, p := range valid {
		var bar string
		if hasNeg {
			bar = buildBiBar(p.Value, minVal, maxVal, barAreaWidth, zeroPos)
		} else {
			barLen := int(math.Round((p.Value - base) / valRange * float64(barAreaWidth)))
			if barLen < 1 {
				barLen = 1
			}
			if barLen > barAreaWidth {
				barLen = barAreaWidth
			}
			bar = strings.Repeat("█", barLen)
		}
		fmt.Fprintf(w, "%-*d  %*s  %s\n", yearWidth, p.Year, valWidth, formatFloat(p.Value), bar)
	}
	return nil
}

// buildBiBar renders a bar that may extend left (negative) or right (positive)
// from a zero baseline at zeroPos within a field of width barAreaWidth.
func buildBiBar(val, minVal, maxVal float64, barAreaWidth, zeroPos int) string {
	valRange := maxVal - minVal
	if valRange == 0 {
		valRange = 1
	}
	buf := []rune(strings.Repeat(" ", barAreaWidth))
	if zeroPos >= 0 && zeroPos < barAreaWidth {
		buf[zeroPos] = '│'
	}
	if val >= 0 {
		end := zeroPos + int(math.Round(val/valRange*float64(barAreaWidth-1)))
		for i := zeroPos + 1; i <= end && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	} else {
		start := zeroPos - int(math.Round((-val)/valRange*float64(barAreaWidth-1)))
		if start < 0 {
			start = 0
		}
		for i := start; i < zeroPos && i < barAreaWidth; i++ {
			buf[i] = '█'
		}
	}
	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a bar value: compact notation for large numbers, at
// most two decimals otherwise, trailing zeros trimmed to one decimal.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
