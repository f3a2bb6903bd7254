package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/scale"
)

var (
	countriesComplete   bool
	countriesIncomplete bool
	countriesOrder      string
)

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the countries in the dataset",
	Long: `Lists every country in the dataset with its all-time total, year span, number
of observations, whether it reports the latest year, and the colour the
progress chart gives it (green at or below 100, red above).

--order sorted lists codes alphabetically; --order progress lists countries
without latest-year data first, as the progress chart does.`,
	Example: `  emissions countries
  emissions countries --incomplete
  emissions countries --order progress --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if countriesComplete && countriesIncomplete {
			return fmt.Errorf("--complete and --incomplete are mutually exclusive")
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

		var codes []string
		switch {
		case countriesComplete:
			codes = ds.CompleteCountries()
		case countriesIncomplete:
			codes = ds.IncompleteCountries()
		case countriesOrder == "progress":
			codes = ds.CodesIncompleteFirst()
		case countriesOrder == "sorted" || countriesOrder == "":
			codes = ds.CountryCodes()
		default:
			return fmt.Errorf("unknown --order %q (want sorted|progress)", countriesOrder)
		}

		colors := scale.Threshold{Totals: ds.CountryTotal}
		infos := make([]model.CountryInfo, 0, len(codes))
		for _, code := range codes {
			info, _ := ds.Info(code)
			info.Color = colors.ColorFor(code)
			infos = append(infos, info)
		}
		result := newResult(model.KindCountries, "countries", infos, len(infos), start, ds)
		return emit(cmd, deps, result)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(countriesCmd)

	countriesCmd.Flags().BoolVar(&countriesComplete, "complete", false,
		"only countries that report the latest year")
	countriesCmd.Flags().BoolVar(&countriesIncomplete, "incomplete", false,
		"only countries missing the latest year")
	countriesCmd.Flags().StringVar(&countriesOrder, "order", "sorted",
		"row order: sorted|progress")
}
