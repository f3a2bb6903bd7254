// Package controller owns one chart: a shared read-only Dataset, the chart's
// own SelectionState and its Variant. Every selection change yields a freshly
// computed RenderFrame; nothing is patched incrementally.
package controller

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/derickschaefer/emissions/internal/aggregate"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/label"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/selection"
)

// ErrUnknownCountry is returned for events naming a code not in the dataset.
var ErrUnknownCountry = errors.New("unknown country")

// Controller is not safe for concurrent use; callers serialise events.
type Controller struct {
	ds      *dataset.Dataset
	variant Variant
	layout  scale.Layout
	sel     *selection.State
	colors  scale.ColorStrategy
}

// New returns a Controller with an empty selection.
func New(ds *dataset.Dataset, v Variant, layout scale.Layout) *Controller {
	return &Controller{
		ds:      ds,
		variant: v,
		layout:  layout,
		sel:     selection.New(v.SelectionOptions()),
		colors:  v.Colors(ds),
	}
}

// Variant returns the chart variant.
func (c *Controller) Variant() Variant { return c.variant }

// Dataset returns the shared dataset.
func (c *Controller) Dataset() *dataset.Dataset { return c.ds }

// Selection returns a snapshot of the current selection.
func (c *Controller) Selection() selection.Snapshot { return c.sel.Current() }

// CountriesDisabled reports whether country checkboxes are disabled.
func (c *Controller) CountriesDisabled() bool { return c.sel.CountriesDisabled() }

// OnSelectionChanged applies a UI event and returns the new frame. When the
// event is rejected the selection is unchanged and the error is returned so
// the caller can revert its checkbox.
func (c *Controller) OnSelectionChanged(ev selection.Event) (*model.RenderFrame, error) {
	if e, ok := ev.(selection.CountryToggled); ok && !c.ds.Has(e.Code) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCountry, e.Code)
	}
	if err := c.sel.Apply(ev); err != nil {
		slog.Debug("selection rejected", "chart", c.variant.Name, "event", fmt.Sprintf("%+v", ev), "err", err)
		return nil, err
	}
	return c.Frame(), nil
}

// Restore replaces the selection with snap. Unknown codes are rejected.
func (c *Controller) Restore(snap selection.Snapshot) error {
	for _, code := range snap.Countries {
		if !c.ds.Has(code) {
			return fmt.Errorf("%w: %s", ErrUnknownCountry, code)
		}
	}
	return c.sel.Restore(snap)
}

// Reset clears the selection.
func (c *Controller) Reset() { c.sel.Reset() }

// ─── Presets ──────────────────────────────────────────────────────────────────

// ErrVariantMismatch is returned when a preset saved for one chart is applied
// to another.
var ErrVariantMismatch = errors.New("preset belongs to a different chart")

// Preset captures the current selection under name.
func (c *Controller) Preset(name string) model.Preset {
	snap := c.sel.Current()
	return model.Preset{
		Name:          name,
		Variant:       c.variant.Name,
		Countries:     snap.Countries,
		TotalAll:      snap.ShowTotalAll,
		TotalComplete: snap.ShowTotalComplete,
	}
}

// ApplyPreset restores a saved selection. An empty Variant matches any chart.
func (c *Controller) ApplyPreset(p model.Preset) error {
	if p.Variant != "" {
		v, err := VariantByName(p.Variant)
		if err != nil {
			return err
		}
		if v.Name != c.variant.Name {
			return fmt.Errorf("%w: %q is for %s, not %s", ErrVariantMismatch, p.Name, v.Name, c.variant.Name)
		}
	}
	return c.Restore(selection.Snapshot{
		Countries:         p.Countries,
		ShowTotalAll:      p.TotalAll,
		ShowTotalComplete: p.TotalComplete,
	})
}

// ─── Frame ────────────────────────────────────────────────────────────────────

// Frame computes the RenderFrame for the current selection.
func (c *Controller) Frame() *model.RenderFrame {
	snap := c.sel.Current()
	all := c.ds.Observations()
	filtered := aggregate.FilterByCountries(all, snap.Countries)
	groups := aggregate.GroupByCountry(filtered)

	selected := model.Series{Label: LabelTotalSelected, ColorKey: "black", Points: aggregate.AggregateByYear(filtered)}
	var totals []model.PlottedSeries
	if snap.ShowTotalAll {
		totals = append(totals, model.PlottedSeries{
			Series: model.Series{Label: LabelTotalAll, ColorKey: "#000", Points: aggregate.AggregateByYear(all)},
			Kind:   model.KindTotalAll,
		})
	}
	if snap.ShowTotalComplete {
		complete := aggregate.FilterByCountries(all, c.ds.CompleteCountries())
		totals = append(totals, model.PlottedSeries{
			Series: model.Series{Label: LabelTotalComplete, ColorKey: "#555", Points: aggregate.AggregateByYear(complete)},
			Kind:   model.KindTotalComplete,
		})
	}

	width, height := c.layout.PlotWidth(), c.layout.PlotHeight()
	xs := scale.NewX(c.variant.XScale, c.ds.MinYear(), c.ds.MaxYear(), width)
	ys := c.yScale(filtered, selected.Points, totals, height)

	var series []model.PlottedSeries
	for _, g := range groups {
		color := c.colors.ColorFor(g.Code)
		series = append(series, model.PlottedSeries{
			Series: model.Series{Label: g.Code, ColorKey: color, Points: g.Points},
			Kind:   model.KindCountry,
			Color:  color,
			Dots:   true,
		})
	}
	series = append(series, model.PlottedSeries{Series: selected, Kind: model.KindTotalSelected})
	series = append(series, totals...)

	placer := label.NewPlacer()
	for i := range series {
		s := &series[i]
		if s.Kind != model.KindCountry {
			s.Color = s.ColorKey
			s.Dashed = true
		}
		s.Plot = make([]model.PlotPoint, len(s.Points))
		for j, p := range s.Points {
			s.Plot[j] = model.PlotPoint{SeriesPoint: p, X: xs.MapYear(p.Year), Y: ys.Map(p.Value)}
		}
		if pp, ok := c.anchorPoint(s); ok {
			s.Label = &model.Label{
				Text: s.Series.Label,
				X:    pp.X + c.variant.LabelOffset,
				Y:    placer.Place(pp.Y),
			}
			if c.variant.LabelStart {
				s.Label.Anchor = "start"
			}
		}
	}

	return &model.RenderFrame{
		Variant:  c.variant.Name,
		Title:    c.variant.Title,
		Width:    int(width),
		Height:   int(height),
		Margin:   c.layout.Margin,
		XAxis:    c.xAxis(xs),
		YAxis:    yAxis(c.variant.YTitle, ys),
		XScale:   xs.Name(),
		Series:   series,
		Selected: snap.Countries,
	}
}

func (c *Controller) yScale(filtered []model.Observation, selected []model.SeriesPoint, totals []model.PlottedSeries, height float64) *scale.YScale {
	countryValues := make([]float64, len(filtered))
	for i, o := range filtered {
		countryValues[i] = o.Value
	}
	var totalValues []float64
	for _, p := range selected {
		totalValues = append(totalValues, p.Value)
	}
	for _, t := range totals {
		for _, p := range t.Points {
			totalValues = append(totalValues, p.Value)
		}
	}
	var lo, hi float64
	if c.variant.YDomain == DomainProgress {
		lo, hi = scale.ProgressDomain(countryValues, totalValues)
	} else {
		lo, hi = scale.StandardDomain(append(countryValues, totalValues...))
	}
	return scale.NewY(lo, hi, height, c.variant.Nice)
}

// anchorPoint returns the point a series' label hangs off. Country series
// skip undefined points; totals use their first or last point as is.
func (c *Controller) anchorPoint(s *model.PlottedSeries) (model.PlotPoint, bool) {
	n := len(s.Plot)
	for k := 0; k < n; k++ {
		i := k
		if c.variant.Anchor == AnchorLast {
			i = n - 1 - k
		}
		if s.Kind != model.KindCountry || s.Plot[i].Defined() {
			return s.Plot[i], true
		}
	}
	return model.PlotPoint{}, false
}

func (c *Controller) xAxis(xs scale.XScale) model.Axis {
	years := xs.Ticks()
	ticks := make([]model.Tick, len(years))
	for i, y := range years {
		ticks[i] = model.Tick{Value: float64(y), Pos: xs.MapYear(y), Text: scale.FormatYear(y)}
	}
	return model.Axis{
		Title:    c.variant.XTitle,
		Ticks:    ticks,
		Min:      float64(c.ds.MinYear()),
		Max:      float64(c.ds.MaxYear()),
		FontSize: c.variant.XTickFont,
	}
}

func yAxis(title string, ys *scale.YScale) model.Axis {
	values := ys.Ticks()
	step := ys.TickStep()
	ticks := make([]model.Tick, len(values))
	for i, v := range values {
		ticks[i] = model.Tick{Value: v, Pos: ys.Map(v), Text: scale.FormatTick(v, step)}
	}
	lo, hi := ys.Domain()
	return model.Axis{Title: title, Ticks: ticks, Min: lo, Max: hi}
}

// ─── Checkboxes ───────────────────────────────────────────────────────────────

// Checkbox is one control in the chart's checkbox list.
type Checkbox struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "country", "total_all" or "total_complete"
	Code     string `json:"code,omitempty"`
	Label    string `json:"label"`
	Checked  bool   `json:"checked"`
	Disabled bool   `json:"disabled"`
}

// Checkbox kinds, matching the event types accepted by the HTTP API.
const (
	CheckboxCountry       = "country"
	CheckboxTotalAll      = "total_all"
	CheckboxTotalComplete = "total_complete"
)

// Checkboxes lists the controls in display order: total toggles (when the
// variant has them) followed by one box per country.
func (c *Controller) Checkboxes() []Checkbox {
	snap := c.sel.Current()
	var out []Checkbox
	if c.variant.Totals {
		out = append(out,
			Checkbox{ID: "show-total-all", Kind: CheckboxTotalAll, Label: "Show Total (All Countries)", Checked: snap.ShowTotalAll},
			Checkbox{ID: "show-total-complete", Kind: CheckboxTotalComplete, Label: "Show Total (Complete Data Only)", Checked: snap.ShowTotalComplete},
		)
	}
	disabled := c.sel.CountriesDisabled()
	for _, code := range c.variant.CountryOrder(c.ds) {
		text := code
		if c.variant.MarkIncomplete && !c.ds.HasLatestYear(code) {
			text += " *"
		}
		out = append(out, Checkbox{
			ID:       c.variant.Name + "-chk-" + code,
			Kind:     CheckboxCountry,
			Code:     code,
			Label:    text,
			Checked:  c.sel.Has(code),
			Disabled: disabled,
		})
	}
	return out
}
