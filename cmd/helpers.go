package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/app"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/render"
	"github.com/derickschaefer/emissions/internal/selection"
	"github.com/derickschaefer/emissions/internal/util"
)

// resolveFormat returns the effective tabular format, falling back to
// "table". Chart formats are rejected here.
func resolveFormat(cfgFormat string) (string, error) {
	format := render.FormatTable
	switch {
	case globalFlags.Format != "":
		format = globalFlags.Format
	case cfgFormat != "":
		format = cfgFormat
	}
	format = strings.ToLower(format)
	if !render.IsFormat(format) {
		return "", fmt.Errorf("unsupported format %q (want %s)", format, strings.Join(render.Formats(), "|"))
	}
	return format, nil
}

// outputWriter returns def, or a newly created --out file. The returned
// close function must always be called.
func outputWriter(def io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return def, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// emit renders result in the configured format to stdout or --out, then
// prints the footer.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	format, err := resolveFormat(deps.Config.Format)
	if err != nil {
		return err
	}
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, format); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// newResult wraps data in a Result envelope.
func newResult(kind, command string, data interface{}, items int, start time.Time, ds *dataset.Dataset) *model.Result {
	r := &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			DurationMs: time.Since(start).Milliseconds(),
			Items:      items,
		},
	}
	if ds != nil {
		r.Stats.Source = ds.Source()
	}
	return r
}

// loadDataset loads the configured source with the command's context.
func loadDataset(cmd *cobra.Command, deps *app.Deps) (*dataset.Dataset, error) {
	return deps.LoadDataset(cmd.Context())
}

// ─── Selection flags ──────────────────────────────────────────────────────────

// selectionFlags are shared by every command that builds a chart selection.
type selectionFlags struct {
	Countries     []string
	TotalAll      bool
	TotalComplete bool
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.Countries, "country", nil,
		"country code to select (repeatable or comma-separated)")
	cmd.Flags().BoolVar(&f.TotalAll, "total-all", false,
		"show Total (All) (standard chart only)")
	cmd.Flags().BoolVar(&f.TotalComplete, "total-complete", false,
		"show Total (Complete) (standard chart only)")
}

// events turns the flags into the UI events a user clicking the same
// checkboxes would emit, in click order.
func (f *selectionFlags) events() []selection.Event {
	var evs []selection.Event
	for _, code := range util.NormaliseCodes(f.Countries) {
		evs = append(evs, selection.CountryToggled{Code: code, Checked: true})
	}
	if f.TotalAll {
		evs = append(evs, selection.TotalAllToggled{Checked: true})
	}
	if f.TotalComplete {
		evs = append(evs, selection.TotalCompleteToggled{Checked: true})
	}
	return evs
}

// replay applies events to ctl. Rejected events leave the selection as it
// was and come back as warnings, like a checkbox snapping back.
func replay(ctl *controller.Controller, evs []selection.Event) []string {
	var warnings []string
	for _, ev := range evs {
		if _, err := ctl.OnSelectionChanged(ev); err != nil {
			warnings = append(warnings, describeEvent(ev)+": "+err.Error())
		}
	}
	return warnings
}

func describeEvent(ev selection.Event) string {
	switch e := ev.(type) {
	case selection.CountryToggled:
		return e.Code
	case selection.TotalAllToggled:
		return "--total-all"
	case selection.TotalCompleteToggled:
		return "--total-complete"
	}
	return fmt.Sprintf("%T", ev)
}

// ─── Tables ───────────────────────────────────────────────────────────────────

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTableTo renders a two-column key/value list with aligned keys.
func printKVTableTo(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
