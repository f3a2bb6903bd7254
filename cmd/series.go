package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/chart"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/transform"
	"github.com/derickschaefer/emissions/internal/util"
)

var (
	seriesSel       selectionFlags
	seriesBar       bool
	seriesMaxBars   int
	seriesTransform []string
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print the per-year values behind a chart selection",
	Long: `Prints each requested country's series, Total (Selected) when any country is
given, and the requested totals, one row per year.

Unlike chart, no selection limit applies: this is the data, not the UI.
JSONL output can be fed back as a dataset with --data -.

--transform applies derived views in order, e.g. pct (change on the previous
year, in percent), diff:5 (change over five years), index:1990 (1990 = 100)
or roll:3 (three-year mean; roll:3:max etc.).`,
	Example: `  emissions series --country USA,DEU
  emissions series --total-all --total-complete --format csv
  emissions series --country USA --format jsonl > usa.jsonl
  emissions series --total-all --bar --max-bars 15
  emissions series --country DEU,GBR --transform index:1990`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		ds, err := loadDataset(cmd, deps)
		if err != nil {
			return err
		}
		series, warnings := requestedSeries(ds, seriesSel)
		if len(series) == 0 {
			return fmt.Errorf("nothing to print: give --country, --total-all or --total-complete")
		}
		for _, spec := range seriesTransform {
			op, err := transform.Parse(spec)
			if err != nil {
				return err
			}
			series, warnings = applyTransform(op, series, warnings)
		}

		if seriesBar {
			w, closeFn, err := outputWriter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()
			for i, s := range series {
				if i > 0 {
					fmt.Fprintln(w)
				}
				if err := chart.Bar(w, s.Label, s.Points, chart.BarOptions{MaxBars: seriesMaxBars}); err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", s.Label, err))
				}
			}
			if !deps.Config.Quiet {
				for _, warn := range warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", warn)
				}
			}
			return nil
		}

		points := 0
		for _, s := range series {
			points += len(s.Points)
		}
		result := newResult(model.KindSeries, "series", series, points, start, ds)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

// requestedSeries builds the series named by the selection flags. Unknown
// codes become warnings.
func requestedSeries(ds *dataset.Dataset, f selectionFlags) ([]model.Series, []string) {
	series, unknown := controller.SeriesFor(ds, util.NormaliseCodes(f.Countries), f.TotalAll, f.TotalComplete)
	var warnings []string
	for _, code := range unknown {
		warnings = append(warnings, fmt.Sprintf("%s: %v", code, controller.ErrUnknownCountry))
	}
	return series, warnings
}

// applyTransform runs op on every series. Series the transform cannot be
// applied to are dropped with a warning.
func applyTransform(op transform.Op, series []model.Series, warnings []string) ([]model.Series, []string) {
	out := series[:0]
	for _, s := range series {
		pts, err := op.Apply(s.Points)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", s.Label, err))
			continue
		}
		s.Points = pts
		out = append(out, s)
	}
	return out, warnings
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(seriesCmd)

	seriesSel.register(seriesCmd)
	seriesCmd.Flags().BoolVar(&seriesBar, "bar", false,
		"draw each series as a terminal bar chart instead of a table")
	seriesCmd.Flags().IntVar(&seriesMaxBars, "max-bars", 0,
		"with --bar, keep only the last N years (0 = no limit)")
	seriesCmd.Flags().StringSliceVar(&seriesTransform, "transform", nil,
		"derived view: pct[:years]|diff[:years]|index:YEAR|roll[:window[:stat]] (repeatable)")
}
