package controller

import (
	"github.com/derickschaefer/emissions/internal/aggregate"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
)

// SeriesFor returns the unplotted series a selection would draw: one per
// known country in codes, Total (Selected) when any country is known, then
// the requested totals. Selection limits do not apply. Unknown codes are
// returned separately.
func SeriesFor(ds *dataset.Dataset, codes []string, totalAll, totalComplete bool) (series []model.Series, unknown []string) {
	var known []string
	for _, c := range codes {
		if ds.Has(c) {
			known = append(known, c)
		} else {
			unknown = append(unknown, c)
		}
	}

	all := ds.Observations()
	filtered := aggregate.FilterByCountries(all, known)
	for _, g := range aggregate.GroupByCountry(filtered) {
		series = append(series, model.Series{Label: g.Code, ColorKey: g.Code, Points: g.Points})
	}
	if len(known) > 0 {
		series = append(series, model.Series{Label: LabelTotalSelected, ColorKey: "black", Points: aggregate.AggregateByYear(filtered)})
	}
	if totalAll {
		series = append(series, model.Series{Label: LabelTotalAll, ColorKey: "#000", Points: aggregate.AggregateByYear(all)})
	}
	if totalComplete {
		complete := aggregate.FilterByCountries(all, ds.CompleteCountries())
		series = append(series, model.Series{Label: LabelTotalComplete, ColorKey: "#555", Points: aggregate.AggregateByYear(complete)})
	}
	return series, unknown
}
