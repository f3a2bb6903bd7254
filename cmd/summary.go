package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/analyze"
	"github.com/derickschaefer/emissions/internal/model"
)

var (
	summarySel    selectionFlags
	summaryMethod string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Descriptive statistics and trend for each requested series",
	Long: `Summarises each requested series: count, mean, min, max, change over the
period, and a fitted trend in value per year.

The trend method is linear least squares by default; theil-sen is robust to
outlier years.`,
	Example: `  emissions summary --country USA,DEU,FRA
  emissions summary --total-all --method theil-sen
  emissions summary --country USA --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := analyze.ParseMethod(summaryMethod)
		if err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		start := time.Now()
		ds, err := loadDataset(cmd, deps)
		if err != nil {
			return err
		}
		series, warnings := requestedSeries(ds, summarySel)
		if len(series) == 0 {
			return fmt.Errorf("nothing to summarise: give --country, --total-all or --total-complete")
		}
		reports := analyze.Analyze(series, method)
		result := newResult(model.KindSummary, "summary", reports, len(reports), start, ds)
		result.Warnings = warnings
		return emit(cmd, deps, result)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(summaryCmd)

	summarySel.register(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryMethod, "method", string(analyze.TrendLinear),
		"trend method: linear|theil-sen")
}
