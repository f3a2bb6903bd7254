package controller_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/selection"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// fixture: USA and DEU report 2020 (the latest year), FRA stops at 2019.
const fixture = `REF_AREA,TIME_PERIOD,OBS_VALUE
USA,2018,20
USA,2019,19
USA,2020,18
DEU,2018,10
DEU,2019,9
DEU,2020,8
FRA,2018,6
FRA,2019,5
ITA,2019,7
ITA,2020,7
ESP,2020,6
GBR,2020,7
POL,2020,9
`

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	d, err := dataset.Load(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return d
}

func newController(t *testing.T, v controller.Variant) *controller.Controller {
	return controller.New(testDataset(t), v, scale.DefaultLayout())
}

func mustApply(t *testing.T, c *controller.Controller, ev selection.Event) *model.RenderFrame {
	t.Helper()
	f, err := c.OnSelectionChanged(ev)
	if err != nil {
		t.Fatalf("event %+v: %v", ev, err)
	}
	return f
}

func find(f *model.RenderFrame, kind model.SeriesKind, label string) *model.PlottedSeries {
	for i := range f.Series {
		s := &f.Series[i]
		if s.Kind == kind && (label == "" || s.Series.Label == label) {
			return s
		}
	}
	return nil
}

// ─── Variants ─────────────────────────────────────────────────────────────────

func TestVariantByName(t *testing.T) {
	for name, want := range map[string]string{"standard": "standard", "WHITE": "standard", "progress": "progress", "black": "progress"} {
		v, err := controller.VariantByName(name)
		if err != nil || v.Name != want {
			t.Errorf("%s: got %q, %v", name, v.Name, err)
		}
	}
	if _, err := controller.VariantByName("pie"); !errors.Is(err, controller.ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

// ─── Empty selection ──────────────────────────────────────────────────────────

func TestEmptyFrame(t *testing.T) {
	f := newController(t, controller.Standard()).Frame()
	if len(f.Series) != 1 {
		t.Fatalf("expected only the selected total, got %d series", len(f.Series))
	}
	s := f.Series[0]
	if s.Kind != model.KindTotalSelected || len(s.Points) != 0 || s.Label != nil {
		t.Errorf("unexpected empty-selection series: %+v", s)
	}
	if len(f.XAxis.Ticks) == 0 || len(f.YAxis.Ticks) == 0 {
		t.Error("axes should be drawn for an empty selection")
	}
	if f.YAxis.Min != 0 || f.YAxis.Max != 1 {
		t.Errorf("empty y domain: expected [0,1], got [%g,%g]", f.YAxis.Min, f.YAxis.Max)
	}
	if f.Width != 700 || f.Height != 380 || f.OuterWidth() != 900 || f.OuterHeight() != 500 {
		t.Errorf("unexpected geometry: %dx%d", f.Width, f.Height)
	}
}

// ─── Standard ─────────────────────────────────────────────────────────────────

func TestStandardFrame(t *testing.T) {
	c := newController(t, controller.Standard())
	mustApply(t, c, selection.CountryToggled{Code: "DEU", Checked: true})
	f := mustApply(t, c, selection.CountryToggled{Code: "USA", Checked: true})

	if len(f.Series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(f.Series))
	}
	// Country series follow dataset order, not selection order.
	if f.Series[0].Series.Label != "USA" || f.Series[1].Series.Label != "DEU" {
		t.Errorf("series order: %s, %s", f.Series[0].Series.Label, f.Series[1].Series.Label)
	}
	total := f.Series[2]
	if total.Kind != model.KindTotalSelected || !total.Dashed || total.Color != "black" {
		t.Errorf("selected total: %+v", total)
	}
	want := []float64{30, 28, 26}
	for i, p := range total.Points {
		if p.Value != want[i] {
			t.Errorf("total[%d]: expected %g, got %g", i, want[i], p.Value)
		}
	}
	if f.YAxis.Min != 0 || f.YAxis.Max < 30 {
		t.Errorf("y domain should be [0, >=30], got [%g,%g]", f.YAxis.Min, f.YAxis.Max)
	}
	usa := f.Series[0]
	last := usa.Plot[len(usa.Plot)-1]
	if usa.Label == nil || usa.Label.X != last.X+5 || usa.Label.Anchor != "" {
		t.Errorf("USA label should sit 5px right of its last point: %+v", usa.Label)
	}
	if !near(last.X, 700) {
		t.Errorf("2020 should map to the right edge, got %g", last.X)
	}
}

func TestStandardLabelsDoNotOverlap(t *testing.T) {
	c := newController(t, controller.Standard())
	for _, code := range []string{"ITA", "GBR"} {
		mustApply(t, c, selection.CountryToggled{Code: code, Checked: true})
	}
	f := c.Frame()
	var ys []float64
	for _, s := range f.Series {
		if s.Label != nil {
			ys = append(ys, s.Label.Y)
		}
	}
	for i := range ys {
		for j := i + 1; j < len(ys); j++ {
			if math.Abs(ys[i]-ys[j]) < 14 {
				t.Errorf("labels %d and %d overlap: %g / %g", i, j, ys[i], ys[j])
			}
		}
	}
}

func TestSixthCountryReverts(t *testing.T) {
	c := newController(t, controller.Standard())
	for _, code := range []string{"USA", "DEU", "FRA", "ITA", "ESP"} {
		mustApply(t, c, selection.CountryToggled{Code: code, Checked: true})
	}
	f, err := c.OnSelectionChanged(selection.CountryToggled{Code: "GBR", Checked: true})
	if !errors.Is(err, selection.ErrSelectionLimitExceeded) || f != nil {
		t.Fatalf("expected limit error and no frame, got %v", err)
	}
	if len(c.Selection().Countries) != 5 {
		t.Errorf("selection changed: %v", c.Selection().Countries)
	}
}

func TestTotalsFrame(t *testing.T) {
	c := newController(t, controller.Standard())
	mustApply(t, c, selection.CountryToggled{Code: "USA", Checked: true})
	mustApply(t, c, selection.TotalAllToggled{Checked: true})
	f := mustApply(t, c, selection.TotalCompleteToggled{Checked: true})

	if len(f.Selected) != 0 {
		t.Errorf("totals should clear countries, got %v", f.Selected)
	}
	all := find(f, model.KindTotalAll, controller.LabelTotalAll)
	complete := find(f, model.KindTotalComplete, controller.LabelTotalComplete)
	if all == nil || complete == nil {
		t.Fatal("both totals should be plotted")
	}
	if all.Color != "#000" || complete.Color != "#555" || !all.Dashed {
		t.Errorf("total styles: %s %s", all.Color, complete.Color)
	}
	// 2020 all: 18+8+7+6+7+9 = 55; complete excludes FRA entirely.
	if got := all.Points[len(all.Points)-1].Value; got != 55 {
		t.Errorf("Total (All) 2020: expected 55, got %g", got)
	}
	// 2019 complete: USA 19 + DEU 9 + ITA 7 = 35.
	if got := complete.Points[1].Value; got != 35 {
		t.Errorf("Total (Complete) 2019: expected 35, got %g", got)
	}
	// Draw order: selected total precedes the plotted totals.
	if f.Series[0].Kind != model.KindTotalSelected || f.Series[1].Kind != model.KindTotalAll {
		t.Errorf("unexpected draw order")
	}

	_, err := c.OnSelectionChanged(selection.CountryToggled{Code: "DEU", Checked: true})
	if !errors.Is(err, selection.ErrCountrySelectionDisabled) {
		t.Errorf("expected ErrCountrySelectionDisabled, got %v", err)
	}
}

func TestUnknownCountry(t *testing.T) {
	c := newController(t, controller.Standard())
	_, err := c.OnSelectionChanged(selection.CountryToggled{Code: "XXX", Checked: true})
	if !errors.Is(err, controller.ErrUnknownCountry) {
		t.Errorf("expected ErrUnknownCountry, got %v", err)
	}
	if err := c.Restore(selection.Snapshot{Countries: []string{"USA", "XXX"}}); !errors.Is(err, controller.ErrUnknownCountry) {
		t.Errorf("Restore: expected ErrUnknownCountry, got %v", err)
	}
}

// ─── Progress ─────────────────────────────────────────────────────────────────

func TestProgressFrame(t *testing.T) {
	c := newController(t, controller.Progress())
	mustApply(t, c, selection.CountryToggled{Code: "DEU", Checked: true})
	f := mustApply(t, c, selection.CountryToggled{Code: "FRA", Checked: true})

	if f.XScale != "skewed" {
		t.Errorf("expected skewed x scale, got %s", f.XScale)
	}
	deu := find(f, model.KindCountry, "DEU")
	fra := find(f, model.KindCountry, "FRA")
	if deu.Color != "green" || fra.Color != "green" {
		t.Errorf("totals 27 and 11 should be green: %s %s", deu.Color, fra.Color)
	}
	// Most recent year on the left.
	if !near(deu.Plot[len(deu.Plot)-1].X, 0) || !near(deu.Plot[0].X, 700) {
		t.Errorf("skewed endpoints: %g .. %g", deu.Plot[0].X, deu.Plot[len(deu.Plot)-1].X)
	}
	// Labels hang off the first point with text-anchor start.
	if deu.Label == nil || deu.Label.X != deu.Plot[0].X+8 || deu.Label.Anchor != "start" {
		t.Errorf("DEU label: %+v", deu.Label)
	}
	// y domain [0.9 * 5, max(10, total 16)].
	if !near(f.YAxis.Min, 4.5) || f.YAxis.Max != 16 {
		t.Errorf("y domain: got [%g,%g]", f.YAxis.Min, f.YAxis.Max)
	}
	if len(f.XAxis.Ticks) != 3 || f.XAxis.FontSize != 10 {
		t.Errorf("expected a 10px tick per year, got %d ticks font %d", len(f.XAxis.Ticks), f.XAxis.FontSize)
	}
}

func TestProgressRedColor(t *testing.T) {
	c := newController(t, controller.Progress())
	f := mustApply(t, c, selection.CountryToggled{Code: "USA", Checked: true})
	if usa := find(f, model.KindCountry, "USA"); usa.Color != "green" {
		t.Errorf("USA total 57 should be green, got %s", usa.Color)
	}
	d := dataset.New([]model.Observation{{CountryCode: "BIG", Year: 2020, Value: 60}, {CountryCode: "BIG", Year: 2021, Value: 40.0001}})
	c = controller.New(d, controller.Progress(), scale.DefaultLayout())
	f = mustApply(t, c, selection.CountryToggled{Code: "BIG", Checked: true})
	if big := find(f, model.KindCountry, "BIG"); big.Color != "red" {
		t.Errorf("total 100.0001 should be red, got %s", big.Color)
	}
}

func TestProgressNoLimitNoTotals(t *testing.T) {
	c := newController(t, controller.Progress())
	for _, code := range []string{"USA", "DEU", "FRA", "ITA", "ESP", "GBR", "POL"} {
		mustApply(t, c, selection.CountryToggled{Code: code, Checked: true})
	}
	if _, err := c.OnSelectionChanged(selection.TotalAllToggled{Checked: true}); !errors.Is(err, selection.ErrTotalsUnsupported) {
		t.Errorf("expected ErrTotalsUnsupported, got %v", err)
	}
}

// ─── Checkboxes ───────────────────────────────────────────────────────────────

func TestCheckboxesStandard(t *testing.T) {
	c := newController(t, controller.Standard())
	boxes := c.Checkboxes()
	if boxes[0].Kind != controller.CheckboxTotalAll || boxes[1].Kind != controller.CheckboxTotalComplete {
		t.Fatalf("total toggles should come first: %+v", boxes[:2])
	}
	var labels []string
	for _, b := range boxes[2:] {
		labels = append(labels, b.Label)
	}
	if got := strings.Join(labels, ","); got != "DEU,ESP,FRA *,GBR,ITA,POL,USA" {
		t.Errorf("labels: %s", got)
	}
	mustApply(t, c, selection.TotalAllToggled{Checked: true})
	for _, b := range c.Checkboxes()[2:] {
		if !b.Disabled {
			t.Errorf("%s should be disabled while a total is shown", b.Code)
		}
	}
}

func TestCheckboxesProgressOrder(t *testing.T) {
	boxes := newController(t, controller.Progress()).Checkboxes()
	if boxes[0].Code != "FRA" || boxes[0].Label != "FRA" {
		t.Errorf("incomplete countries first without marker, got %+v", boxes[0])
	}
	if len(boxes) != 7 {
		t.Errorf("expected 7 country boxes, got %d", len(boxes))
	}
}

// ─── Presets ──────────────────────────────────────────────────────────────────

func TestPresetRoundTrip(t *testing.T) {
	c := newController(t, controller.Standard())
	mustApply(t, c, selection.CountryToggled{Code: "USA", Checked: true})
	mustApply(t, c, selection.CountryToggled{Code: "DEU", Checked: true})
	p := c.Preset("pair")
	if p.Variant != "standard" || strings.Join(p.Countries, ",") != "USA,DEU" {
		t.Fatalf("preset: %+v", p)
	}

	other := newController(t, controller.Standard())
	if err := other.ApplyPreset(p); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if got := strings.Join(other.Selection().Countries, ","); got != "USA,DEU" {
		t.Errorf("selection after apply: %s", got)
	}
}

func TestApplyPresetWrongVariant(t *testing.T) {
	c := newController(t, controller.Progress())
	err := c.ApplyPreset(model.Preset{Name: "x", Variant: "white", Countries: []string{"USA"}})
	if !errors.Is(err, controller.ErrVariantMismatch) {
		t.Fatalf("expected ErrVariantMismatch, got %v", err)
	}
	if len(c.Selection().Countries) != 0 {
		t.Error("selection should be unchanged")
	}
}

func TestApplyPresetValidates(t *testing.T) {
	c := newController(t, controller.Standard())
	err := c.ApplyPreset(model.Preset{Countries: []string{"USA", "XXX"}})
	if !errors.Is(err, controller.ErrUnknownCountry) {
		t.Errorf("expected ErrUnknownCountry, got %v", err)
	}
	err = c.ApplyPreset(model.Preset{Countries: []string{"USA", "DEU", "FRA", "ITA", "ESP", "GBR"}})
	if !errors.Is(err, selection.ErrSelectionLimitExceeded) {
		t.Errorf("expected ErrSelectionLimitExceeded, got %v", err)
	}
}

// ─── SeriesFor ────────────────────────────────────────────────────────────────

func TestSeriesFor(t *testing.T) {
	ds := testDataset(t)
	series, unknown := controller.SeriesFor(ds, []string{"DEU", "XXX", "FRA"}, true, true)
	if len(unknown) != 1 || unknown[0] != "XXX" {
		t.Errorf("unknown: %v", unknown)
	}
	var labels []string
	for _, s := range series {
		labels = append(labels, s.Label)
	}
	want := "DEU,FRA,Total (Selected),Total (All),Total (Complete)"
	if got := strings.Join(labels, ","); got != want {
		t.Fatalf("labels: got %s, want %s", got, want)
	}
	selected := series[2].Points
	if len(selected) != 3 || selected[0].Value != 16 || selected[2].Value != 8 {
		t.Errorf("Total (Selected): %+v", selected)
	}
}

func TestSeriesForNothingSelected(t *testing.T) {
	series, _ := controller.SeriesFor(testDataset(t), nil, false, false)
	if len(series) != 0 {
		t.Errorf("expected no series, got %d", len(series))
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
