package chart_test

import (
	"bytes"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/emissions/internal/chart"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/selection"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// plotted builds a series whose points sit on a 100×100 plot area, with
// year 2018 at x=0 and one year every 50px.
func plotted(label string, kind model.SeriesKind, color string, values ...float64) model.PlottedSeries {
	s := model.PlottedSeries{
		Series: model.Series{Label: label, ColorKey: label},
		Kind:   kind,
		Color:  color,
		Dashed: kind != model.KindCountry,
		Dots:   kind == model.KindCountry,
	}
	for i, v := range values {
		p := model.SeriesPoint{Year: 2018 + i, Value: v}
		s.Points = append(s.Points, p)
		s.Plot = append(s.Plot, model.PlotPoint{SeriesPoint: p, X: float64(i) * 50, Y: 100 - v})
	}
	if n := len(s.Plot); n > 0 {
		last := s.Plot[n-1]
		s.Label = &model.Label{Text: label, X: last.X + 5, Y: last.Y}
	}
	return s
}

func testFrame() *model.RenderFrame {
	return &model.RenderFrame{
		Variant: "standard",
		Title:   "Greenhouse Gas Emissions Over Time",
		Width:   100,
		Height:  100,
		Margin:  model.Margin{Top: 60, Right: 130, Bottom: 60, Left: 70},
		XScale:  "linear",
		XAxis: model.Axis{
			Title: "Year",
			Min:   2018,
			Max:   2020,
			Ticks: []model.Tick{
				{Value: 2018, Pos: 0, Text: "2018"},
				{Value: 2019, Pos: 50, Text: "2019"},
				{Value: 2020, Pos: 100, Text: "2020"},
			},
		},
		YAxis: model.Axis{
			Title: "GHG Emissions (kg CO₂e per capita)",
			Min:   0,
			Max:   100,
			Ticks: []model.Tick{
				{Value: 0, Pos: 100, Text: "0"},
				{Value: 50, Pos: 50, Text: "50"},
				{Value: 100, Pos: 0, Text: "100"},
			},
		},
		Series: []model.PlottedSeries{
			plotted("USA", model.KindCountry, "#1f77b4", 20, 30, 40),
			plotted("Total (Selected)", model.KindTotalSelected, "black", 20, 30, 40),
		},
		Selected: []string{"USA"},
	}
}

// ─── Render ───────────────────────────────────────────────────────────────────

func TestRenderUnknownFormat(t *testing.T) {
	err := chart.Render(&bytes.Buffer{}, testFrame(), "gif", chart.ASCIIOptions{})
	if !errors.Is(err, chart.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]string{
		"out/chart.svg": chart.FormatSVG,
		"chart.PNG":     chart.FormatPNG,
		"chart.txt":     chart.FormatASCII,
		"chart.pdf":     "",
	}
	for path, want := range cases {
		if got := chart.FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

// ─── SVG ──────────────────────────────────────────────────────────────────────

func TestSVGContainsSeries(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.SVG(&buf, testFrame()); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "<?xml") {
		t.Error("expected an XML prologue")
	}
	if n := strings.Count(out, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	if n := strings.Count(out, "<circle"); n != 3 {
		t.Errorf("expected 3 country dots, got %d", n)
	}
	if !strings.Contains(out, "stroke-dasharray:5,2") {
		t.Error("total series should be dashed")
	}
	if !strings.Contains(out, "Country: USA&#xA;Year: 2019&#xA;Value: 30.00") {
		t.Error("missing point tooltip")
	}
	for _, want := range []string{"Greenhouse Gas Emissions Over Time", "Year", "2019", ">USA<"} {
		if !strings.Contains(out, want) {
			t.Errorf("SVG should contain %q", want)
		}
	}
}

func TestSVGUndefinedPointSplitsPath(t *testing.T) {
	f := testFrame()
	f.Series = []model.PlottedSeries{plotted("USA", model.KindCountry, "#1f77b4", 20, math.NaN(), 40)}
	var buf bytes.Buffer
	if err := chart.SVG(&buf, f); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `d="M0.00,80.00 M100.00,60.00"`) {
		t.Errorf("expected two subpaths, output: %s", out)
	}
	if n := strings.Count(out, "<circle"); n != 2 {
		t.Errorf("undefined points should not get a dot, got %d", n)
	}
}

func TestSVGYAxisSpansPlotHeight(t *testing.T) {
	f := testFrame()
	f.Height = 380
	// Nice ticks that stop well short of the bottom edge.
	f.YAxis.Ticks = []model.Tick{
		{Value: 20, Pos: 300, Text: "20"},
		{Value: 40, Pos: 150, Text: "40"},
		{Value: 60, Pos: 0, Text: "60"},
	}
	var buf bytes.Buffer
	if err := chart.SVG(&buf, f); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	re := regexp.MustCompile(`<line x1="([^"]+)" y1="([^"]+)" x2="([^"]+)" y2="([^"]+)"[^>]*class="domain"`)
	m := re.FindStringSubmatch(buf.String())
	if m == nil {
		t.Fatalf("no y-axis domain line in output: %s", buf.String())
	}
	var got [4]float64
	for i := range got {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			t.Fatalf("coordinate %q: %v", m[i+1], err)
		}
		got[i] = v
	}
	if got != [4]float64{0, 0, 0, 380} {
		t.Errorf("domain line = %v, want [0 0 0 380]", got)
	}
}

func TestTooltip(t *testing.T) {
	got := chart.Tooltip("DEU", model.SeriesPoint{Year: 2020, Value: 8.123})
	if got != "Country: DEU\nYear: 2020\nValue: 8.12" {
		t.Errorf("got %q", got)
	}
}

// ─── PNG ──────────────────────────────────────────────────────────────────────

func TestPNGMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.PNG(&buf, testFrame()); err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output is not a PNG")
	}
}

func TestPNGEmptySelection(t *testing.T) {
	f := testFrame()
	f.Series = []model.PlottedSeries{{
		Series: model.Series{Label: "Total (Selected)"},
		Kind:   model.KindTotalSelected,
		Color:  "black",
		Dashed: true,
	}}
	var buf bytes.Buffer
	if err := chart.PNG(&buf, f); err != nil {
		t.Fatalf("an empty selection should still render: %v", err)
	}
}

// renderPNG fails the test if rendering does not finish in time.
func renderPNG(t *testing.T, f *model.RenderFrame) []byte {
	t.Helper()
	type result struct {
		buf []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		err := chart.PNG(&buf, f)
		done <- result{buf.Bytes(), err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("PNG: %v", r.err)
		}
		return r.buf
	case <-time.After(10 * time.Second):
		t.Fatal("PNG rendering did not finish")
	}
	return nil
}

func TestPNGControllerFrames(t *testing.T) {
	const csv = `REF_AREA,TIME_PERIOD,OBS_VALUE
USA,2018,20
USA,2019,19
USA,2020,18
DEU,2018,10
DEU,2019,9
DEU,2020,8
FRA,2019,5
`
	for _, v := range []controller.Variant{controller.Standard(), controller.Progress()} {
		t.Run(v.Name, func(t *testing.T) {
			ds, err := dataset.Load(strings.NewReader(csv))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			ctl := controller.New(ds, v, scale.DefaultLayout())
			if _, err := ctl.OnSelectionChanged(selection.CountryToggled{Code: "DEU", Checked: true}); err != nil {
				t.Fatalf("select DEU: %v", err)
			}
			out := renderPNG(t, ctl.Frame())
			if !bytes.HasPrefix(out, []byte("\x89PNG\r\n\x1a\n")) {
				t.Error("output is not a PNG")
			}
		})
	}
}

func TestPNGSkewedSingleYear(t *testing.T) {
	f := testFrame()
	f.XScale = "skewed"
	f.XAxis.Min, f.XAxis.Max = 2020, 2020
	f.XAxis.Ticks = []model.Tick{{Value: 2020, Pos: 43.5, Text: "2020"}}
	f.Series = []model.PlottedSeries{plotted("USA", model.KindCountry, "green", 20)}
	var buf bytes.Buffer
	if err := chart.PNG(&buf, f); err != nil {
		t.Fatalf("PNG: %v", err)
	}
}

// ─── ASCII ────────────────────────────────────────────────────────────────────

func TestASCIIDrawsAxesAndLegend(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.ASCII(&buf, testFrame(), chart.ASCIIOptions{Width: 60, Height: 10}); err != nil {
		t.Fatalf("ASCII: %v", err)
	}
	out := buf.String()
	lines := strings.Split(out, "\n")
	if lines[0] != "Greenhouse Gas Emissions Over Time" {
		t.Errorf("first line should be the title, got %q", lines[0])
	}
	for _, want := range []string{"└", "2018", "2020", "● USA", "· Total (Selected)", "100┤"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestASCIIRowWidth(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.ASCII(&buf, testFrame(), chart.ASCIIOptions{Width: 40, Height: 8}); err != nil {
		t.Fatalf("ASCII: %v", err)
	}
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.ContainsAny(line, "┤│") {
			if n := len([]rune(line)); n != 40 {
				t.Errorf("plot row should be 40 runes wide, got %d: %q", n, line)
			}
		}
	}
}

func TestASCIIEmptyFrame(t *testing.T) {
	f := testFrame()
	f.Series = nil
	var buf bytes.Buffer
	if err := chart.ASCII(&buf, f, chart.ASCIIOptions{Width: 40, Height: 5}); err != nil {
		t.Fatalf("ASCII: %v", err)
	}
	if strings.ContainsAny(buf.String(), "●·") {
		t.Error("an empty frame should draw no glyphs")
	}
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

func TestBarBasic(t *testing.T) {
	points := []model.SeriesPoint{{Year: 2018, Value: 30}, {Year: 2019, Value: 28}, {Year: 2020, Value: 26}}
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "Total (Selected)", points, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("Bar: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 bars, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Total (Selected)  2018") {
		t.Errorf("header: %q", lines[0])
	}
	if strings.Count(lines[1], "█") <= strings.Count(lines[3], "█") {
		t.Error("larger values should draw longer bars")
	}
}

func TestBarSkipsUndefinedAndCaps(t *testing.T) {
	points := []model.SeriesPoint{
		{Year: 2017, Value: 1}, {Year: 2018, Value: math.NaN()}, {Year: 2019, Value: 3}, {Year: 2020, Value: 4},
	}
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "X", points, chart.BarOptions{Width: 40, MaxBars: 2}); err != nil {
		t.Fatalf("Bar: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "2017") || strings.Contains(out, "2018  ") {
		t.Errorf("expected only the last two defined years:\n%s", out)
	}
}

func TestBarNegativeValues(t *testing.T) {
	points := []model.SeriesPoint{{Year: 2019, Value: -5}, {Year: 2020, Value: 5}}
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "X", points, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("Bar: %v", err)
	}
	if !strings.Contains(buf.String(), "│") {
		t.Error("negative values should draw a zero line")
	}
}

func TestBarNoValues(t *testing.T) {
	err := chart.Bar(&bytes.Buffer{}, "X", []model.SeriesPoint{{Year: 2020, Value: math.NaN()}}, chart.BarOptions{})
	if err == nil {
		t.Fatal("expected error for a series without values")
	}
}
