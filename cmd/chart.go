package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/chart"
	"github.com/derickschaefer/emissions/internal/pipeline"
)

var (
	chartSel    selectionFlags
	chartPreset string
	chartWidth  int
	chartHeight int
)

var chartCmd = &cobra.Command{
	Use:   "chart <standard|progress>",
	Short: "Draw one of the two charts as SVG, PNG or terminal text",
	Long: `Builds the chart the web UI would show after clicking the given checkboxes,
and draws it.

Flags are replayed as checkbox clicks in order: countries first, then the
total toggles. A click the chart rejects (a sixth country on the standard
chart, a country while a total is shown, a total on the progress chart) is
reported as a warning and skipped, exactly like the UI reverting the box.

The format comes from --format (svg|png|ascii), else from the --out file
extension (.svg, .png, .txt), else ascii. --width and --height are pixels for
svg/png and characters for ascii.

"white" and "black" are accepted as aliases of standard and progress.`,
	Example: `  emissions chart standard --country USA,DEU,FRA
  emissions chart standard --country USA --total-all          # warns: totals clear countries
  emissions chart progress --country USA,CHN --out progress.svg
  emissions chart standard --preset europe --out europe.png
  emissions chart progress --format ascii --height 20`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"standard", "progress"},
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		format, err := chartFormat()
		if err != nil {
			return err
		}
		if format != chart.FormatASCII {
			if chartWidth > 0 {
				deps.Config.Width = chartWidth
			}
			if chartHeight > 0 {
				deps.Config.Height = chartHeight
			}
		}
		// Resolve the variant before touching the data source.
		if _, err := deps.Variant(args[0]); err != nil {
			return err
		}

		ds, err := loadDataset(cmd, deps)
		if err != nil {
			return err
		}
		ctl, err := deps.Controller(ds, args[0])
		if err != nil {
			return err
		}

		if chartPreset != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			p, found, err := deps.Store.GetPreset(chartPreset)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("preset %q not found (see: emissions preset list)", chartPreset)
			}
			if err := ctl.ApplyPreset(p); err != nil {
				return fmt.Errorf("applying preset %q: %w", chartPreset, err)
			}
		}

		warnings := replay(ctl, chartSel.events())
		if !globalFlags.Quiet {
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", w)
			}
		}

		out := cmd.OutOrStdout()
		if format == chart.FormatPNG && globalFlags.Out == "" && out == os.Stdout && pipeline.IsTTY() {
			return fmt.Errorf("refusing to write PNG to a terminal; use --out FILE or redirect stdout")
		}
		w, closeFn, err := outputWriter(out)
		if err != nil {
			return err
		}
		opts := chart.ASCIIOptions{}
		if format == chart.FormatASCII {
			opts = chart.ASCIIOptions{Width: chartWidth, Height: chartHeight}
		}
		if err := chart.Render(w, ctl.Frame(), format, opts); err != nil {
			_ = closeFn()
			return err
		}
		if err := closeFn(); err != nil {
			return err
		}
		if globalFlags.Out != "" && !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s chart to %s\n", format, globalFlags.Out)
		}
		return nil
	},
}

// chartFormat picks the chart format from --format, then the --out
// extension, then ascii.
func chartFormat() (string, error) {
	if f := strings.ToLower(globalFlags.Format); f != "" {
		for _, known := range chart.Formats() {
			if f == known {
				return f, nil
			}
		}
		return "", fmt.Errorf("%w %q (want %s)", chart.ErrUnknownFormat, f, strings.Join(chart.Formats(), "|"))
	}
	if f := chart.FormatForPath(globalFlags.Out); f != "" {
		return f, nil
	}
	return chart.FormatASCII, nil
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(chartCmd)

	chartSel.register(chartCmd)
	chartCmd.Flags().StringVar(&chartPreset, "preset", "",
		"start from a saved preset (see: emissions preset list)")
	_ = chartCmd.RegisterFlagCompletionFunc("preset", completePresetNames)
	chartCmd.Flags().IntVar(&chartWidth, "width", 0,
		"width in pixels (svg/png) or characters (ascii); default from config or $COLUMNS")
	chartCmd.Flags().IntVar(&chartHeight, "height", 0,
		"height in pixels (svg/png) or rows (ascii)")
}
