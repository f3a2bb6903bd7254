package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/selection"
)

// Anchor selects which end of a series carries its label.
type Anchor string

const (
	AnchorLast  Anchor = "last"
	AnchorFirst Anchor = "first"
)

// Color strategies.
const (
	ColorPalette   = "palette"
	ColorThreshold = "threshold"
)

// Y domain rules.
const (
	DomainFromZero = "zero"     // [0, max]
	DomainProgress = "progress" // [0.9 * min, max]
)

// Chart and axis titles.
const (
	TitleChart    = "Greenhouse Gas Emissions Over Time"
	TitleYear     = "Year"
	TitleStandard = "GHG Emissions (kg CO₂e per capita)"
	TitleProgress = "Environmental Progress (kg CO₂e)"
)

// Series labels.
const (
	LabelTotalSelected = "Total (Selected)"
	LabelTotalAll      = "Total (All)"
	LabelTotalComplete = "Total (Complete)"
)

// ErrUnknownVariant is returned by VariantByName.
var ErrUnknownVariant = errors.New("unknown chart variant")

// Variant bundles everything that differs between the two charts.
type Variant struct {
	Name        string
	XScale      string // "linear" or "skewed"
	Color       string // ColorPalette or ColorThreshold
	YDomain     string // DomainFromZero or DomainProgress
	Nice        bool   // round the y domain outward
	Totals      bool   // offer Total (All) / Total (Complete)
	Limit       int    // max selected countries; 0 = unbounded
	Anchor      Anchor
	LabelOffset float64
	LabelStart  bool // labels use text-anchor start
	Title       string
	XTitle      string
	YTitle      string
	XTickFont   int // 0 = renderer default

	MarkIncomplete  bool // suffix " *" on countries lacking latest-year data
	IncompleteFirst bool // list incomplete countries first
}

// Standard is the linear, palette-colored chart with total toggles and a
// five-country limit.
func Standard() Variant {
	return Variant{
		Name:           "standard",
		XScale:         "linear",
		Color:          ColorPalette,
		YDomain:        DomainFromZero,
		Nice:           true,
		Totals:         true,
		Limit:          5,
		Anchor:         AnchorLast,
		LabelOffset:    5,
		Title:          TitleChart,
		XTitle:         TitleYear,
		YTitle:         TitleStandard,
		MarkIncomplete: true,
	}
}

// Progress is the skewed, threshold-colored chart with no selection limit.
func Progress() Variant {
	return Variant{
		Name:            "progress",
		XScale:          "skewed",
		Color:           ColorThreshold,
		YDomain:         DomainProgress,
		Anchor:          AnchorFirst,
		LabelOffset:     8,
		LabelStart:      true,
		Title:           TitleChart,
		XTitle:          TitleYear,
		YTitle:          TitleProgress,
		XTickFont:       10,
		IncompleteFirst: true,
	}
}

// Variants lists the known variants.
func Variants() []Variant {
	return []Variant{Standard(), Progress()}
}

// VariantByName looks a variant up by name. "white" and "black" are accepted
// as aliases.
func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard", "white":
		return Standard(), nil
	case "progress", "black":
		return Progress(), nil
	}
	return Variant{}, fmt.Errorf("%w %q (valid: standard, progress)", ErrUnknownVariant, name)
}

// SelectionOptions returns the selection rules of the variant.
func (v Variant) SelectionOptions() selection.Options {
	return selection.Options{Limit: v.Limit, Totals: v.Totals}
}

// Colors returns the color strategy of the variant for ds.
func (v Variant) Colors(ds *dataset.Dataset) scale.ColorStrategy {
	if v.Color == ColorThreshold {
		return scale.Threshold{Totals: ds.CountryTotal}
	}
	return scale.NewPalette(ds.CountryCodes())
}

// CountryOrder returns the dataset's codes in checkbox order.
func (v Variant) CountryOrder(ds *dataset.Dataset) []string {
	if v.IncompleteFirst {
		return ds.CodesIncompleteFirst()
	}
	return ds.CountryCodes()
}
