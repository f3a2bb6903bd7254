// Package model defines the canonical data types used throughout emissions.
// These types are the single source of truth for observations, plotted series,
// render frames and the result envelope that tabular commands return.
package model

import (
	"math"
	"time"
)

// ─── Dataset Types ────────────────────────────────────────────────────────────

// Observation is one (country, year, value) emissions data point.
type Observation struct {
	CountryCode string  `json:"country"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
}

// IsMissing returns true if the observation value is NaN.
func (o Observation) IsMissing() bool {
	return math.IsNaN(o.Value)
}

// SeriesPoint is a single aggregated (year, value) pair.
type SeriesPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Defined reports whether the point should be drawn. Undefined points split
// a line path into separate segments.
func (p SeriesPoint) Defined() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// Series is an ordered-by-year sequence of points sharing a label and color.
type Series struct {
	Label    string        `json:"label"`
	ColorKey string        `json:"color_key"`
	Points   []SeriesPoint `json:"points"`
}

// ─── Render Frame ─────────────────────────────────────────────────────────────

// SeriesKind identifies what a plotted series represents.
type SeriesKind string

const (
	KindCountry       SeriesKind = "country"
	KindTotalSelected SeriesKind = "total_selected"
	KindTotalAll      SeriesKind = "total_all"
	KindTotalComplete SeriesKind = "total_complete"
)

// PlotPoint is a SeriesPoint with its pixel position inside the plot area.
type PlotPoint struct {
	SeriesPoint
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Label is a text label attached to one end of a series.
type Label struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Anchor string  `json:"anchor,omitempty"` // "start" or ""
}

// PlottedSeries is a Series resolved to screen space.
type PlottedSeries struct {
	Series
	Kind   SeriesKind  `json:"kind"`
	Color  string      `json:"color"`
	Dashed bool        `json:"dashed"`
	Dots   bool        `json:"dots"` // draw a marker per point
	Plot   []PlotPoint `json:"plot"`
	Label  *Label      `json:"end_label,omitempty"`
}

// Tick is one axis tick: its data value, pixel offset and text.
type Tick struct {
	Value float64 `json:"value"`
	Pos   float64 `json:"pos"`
	Text  string  `json:"text"`
}

// Axis describes one chart axis.
type Axis struct {
	Title    string  `json:"title"`
	Ticks    []Tick  `json:"ticks"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	FontSize int     `json:"font_size,omitempty"`
}

// Margin is the space around the plot area, in pixels.
type Margin struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// RenderFrame is everything a renderer needs to draw one chart. It is
// recomputed from scratch on every selection change.
type RenderFrame struct {
	Variant  string          `json:"variant"`
	Title    string          `json:"title"`
	Width    int             `json:"width"`  // plot area width
	Height   int             `json:"height"` // plot area height
	Margin   Margin          `json:"margin"`
	XAxis    Axis            `json:"x_axis"`
	YAxis    Axis            `json:"y_axis"`
	XScale   string          `json:"x_scale"` // "linear" or "skewed"
	Series   []PlottedSeries `json:"series"`
	Selected []string        `json:"selected"`
	Warnings []string        `json:"warnings,omitempty"`
}

// OuterWidth returns the full drawing width including margins.
func (f *RenderFrame) OuterWidth() int {
	return f.Width + f.Margin.Left + f.Margin.Right
}

// OuterHeight returns the full drawing height including margins.
func (f *RenderFrame) OuterHeight() int {
	return f.Height + f.Margin.Top + f.Margin.Bottom
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and size metadata for a command result.
type ResultStats struct {
	DurationMs int64  `json:"duration_ms"`
	Items      int    `json:"items"`
	Source     string `json:"source,omitempty"` // dataset the result was computed from
}

// Result is the uniform envelope returned by tabular commands.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeries    = "series"
	KindCountries = "countries"
	KindSummary   = "summary"
	KindPresets   = "presets"
)

// CountryInfo describes one country in the loaded dataset.
type CountryInfo struct {
	Code      string  `json:"code"`
	Total     float64 `json:"total"`
	FirstYear int     `json:"first_year"`
	LastYear  int     `json:"last_year"`
	Count     int     `json:"count"`
	HasLatest bool    `json:"has_latest"`
	Color     string  `json:"color"`
}

// ─── Presets ──────────────────────────────────────────────────────────────────

// Preset is a named, persisted chart selection.
type Preset struct {
	Name          string    `json:"name" yaml:"name"`
	Variant       string    `json:"variant" yaml:"variant"`
	Countries     []string  `json:"countries" yaml:"countries"`
	TotalAll      bool      `json:"total_all,omitempty" yaml:"total_all,omitempty"`
	TotalComplete bool      `json:"total_complete,omitempty" yaml:"total_complete,omitempty"`
	SavedAt       time.Time `json:"saved_at" yaml:"saved_at"`
}
