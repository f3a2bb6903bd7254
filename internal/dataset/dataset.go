// Package dataset loads emissions observations and derives the dataset-wide
// facts every chart needs: the year range, per-country totals and which
// countries report data for the most recent year.
//
// A Dataset is immutable once loaded. It is created once at startup and
// shared read-only by every chart controller.
package dataset

import (
	"math"
	"sort"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/util"
)

// Dataset is an ordered sequence of observations plus derived facts.
type Dataset struct {
	obs     []model.Observation
	minYear int
	maxYear int
	codes   []string
	index   map[string]int
	totals  map[string]float64
	latest  map[string]bool
	counts  map[string]int
	firstYr map[string]int
	lastYr  map[string]int
	dropped int
	source  string
}

// New builds a Dataset from observations that already satisfy the retention
// rule (see Keep). Order is preserved.
func New(obs []model.Observation) *Dataset {
	d := &Dataset{
		obs:     append([]model.Observation(nil), obs...),
		index:   make(map[string]int),
		totals:  make(map[string]float64),
		latest:  make(map[string]bool),
		counts:  make(map[string]int),
		firstYr: make(map[string]int),
		lastYr:  make(map[string]int),
	}
	d.derive()
	return d
}

// derive computes every fact in one pass plus a sort of the codes.
func (d *Dataset) derive() {
	if len(d.obs) == 0 {
		return
	}
	d.minYear, d.maxYear = d.obs[0].Year, d.obs[0].Year
	for _, o := range d.obs {
		if o.Year < d.minYear {
			d.minYear = o.Year
		}
		if o.Year > d.maxYear {
			d.maxYear = o.Year
		}
		if _, ok := d.counts[o.CountryCode]; !ok {
			d.codes = append(d.codes, o.CountryCode)
			d.firstYr[o.CountryCode] = o.Year
			d.lastYr[o.CountryCode] = o.Year
		}
		d.counts[o.CountryCode]++
		d.totals[o.CountryCode] += o.Value
		if o.Year < d.firstYr[o.CountryCode] {
			d.firstYr[o.CountryCode] = o.Year
		}
		if o.Year > d.lastYr[o.CountryCode] {
			d.lastYr[o.CountryCode] = o.Year
		}
	}
	sort.Strings(d.codes)
	for i, c := range d.codes {
		d.index[c] = i
	}
	for _, o := range d.obs {
		if o.Year == d.maxYear {
			d.latest[o.CountryCode] = true
		}
	}
}

// Keep reports whether a raw row is retained: the code must be non-empty and
// both the year and the value must be numbers other than zero. Rows holding a
// legitimate zero are dropped along with missing ones.
func Keep(code string, year, value float64) bool {
	return code != "" && util.Truthy(year) && util.Truthy(value)
}

// Observations returns the retained observations in load order.
// The returned slice must not be modified.
func (d *Dataset) Observations() []model.Observation { return d.obs }

// Len returns the number of retained observations.
func (d *Dataset) Len() int { return len(d.obs) }

// MinYear returns the earliest year in the dataset (0 when empty).
func (d *Dataset) MinYear() int { return d.minYear }

// MaxYear returns the latest year in the dataset (0 when empty).
func (d *Dataset) MaxYear() int { return d.maxYear }

// Dropped returns how many raw rows the loader discarded.
func (d *Dataset) Dropped() int { return d.dropped }

// Source returns where the dataset was loaded from, if known.
func (d *Dataset) Source() string { return d.source }

// CountryCodes returns the distinct country codes, sorted.
func (d *Dataset) CountryCodes() []string {
	return append([]string(nil), d.codes...)
}

// Has reports whether code appears in the dataset.
func (d *Dataset) Has(code string) bool {
	_, ok := d.index[code]
	return ok
}

// IndexOf returns the position of code in CountryCodes, or -1.
func (d *Dataset) IndexOf(code string) int {
	if i, ok := d.index[code]; ok {
		return i
	}
	return -1
}

// CountryTotal returns the sum of all values for code across all years.
// Unknown codes total zero.
func (d *Dataset) CountryTotal(code string) float64 {
	return d.totals[code]
}

// HasLatestYear reports whether code has at least one observation in MaxYear.
func (d *Dataset) HasLatestYear(code string) bool {
	return d.latest[code]
}

// CompleteCountries returns the sorted codes that have latest-year data.
func (d *Dataset) CompleteCountries() []string {
	var out []string
	for _, c := range d.codes {
		if d.latest[c] {
			out = append(out, c)
		}
	}
	return out
}

// IncompleteCountries returns the sorted codes lacking latest-year data.
func (d *Dataset) IncompleteCountries() []string {
	var out []string
	for _, c := range d.codes {
		if !d.latest[c] {
			out = append(out, c)
		}
	}
	return out
}

// CodesIncompleteFirst lists incomplete countries, then complete ones.
func (d *Dataset) CodesIncompleteFirst() []string {
	return append(d.IncompleteCountries(), d.CompleteCountries()...)
}

// Info returns the per-country facts for code.
func (d *Dataset) Info(code string) (model.CountryInfo, bool) {
	n, ok := d.counts[code]
	if !ok {
		return model.CountryInfo{Code: code}, false
	}
	return model.CountryInfo{
		Code:      code,
		Total:     d.totals[code],
		FirstYear: d.firstYr[code],
		LastYear:  d.lastYr[code],
		Count:     n,
		HasLatest: d.latest[code],
	}, true
}

// ValueExtent returns the smallest and largest observation values.
func (d *Dataset) ValueExtent() (lo, hi float64, ok bool) {
	if len(d.obs) == 0 {
		return math.NaN(), math.NaN(), false
	}
	lo, hi = d.obs[0].Value, d.obs[0].Value
	for _, o := range d.obs[1:] {
		lo = math.Min(lo, o.Value)
		hi = math.Max(hi, o.Value)
	}
	return lo, hi, true
}
