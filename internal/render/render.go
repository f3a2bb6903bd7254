// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/emissions/internal/analyze"
	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/pipeline"
	"github.com/derickschaefer/emissions/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists the tabular formats in display order.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}
}

// IsFormat reports whether s names a tabular format.
func IsFormat(s string) bool {
	for _, f := range Formats() {
		if s == f {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── Rows ─────────────────────────────────────────────────────────────────────

// table is the format-neutral shape every Result kind is flattened into.
// Table, CSV/TSV and Markdown all draw from it.
type table struct {
	header []string
	align  []int // tablewriter alignment per column
	rows   [][]string
}

const (
	left  = tablewriter.ALIGN_LEFT
	right = tablewriter.ALIGN_RIGHT
)

func tableFor(result *model.Result) (*table, error) {
	switch data := result.Data.(type) {
	case []model.Series:
		return seriesTable(data), nil
	case []model.CountryInfo:
		return countriesTable(data), nil
	case []analyze.Report:
		return summaryTable(data), nil
	case []model.Preset:
		return presetsTable(data), nil
	case [][]string:
		return kvTable(data), nil
	}
	return nil, fmt.Errorf("unexpected data type %T for %s", result.Data, result.Kind)
}

func seriesTable(series []model.Series) *table {
	t := &table{
		header: []string{"SERIES", "YEAR", "VALUE"},
		align:  []int{left, left, right},
	}
	for _, s := range series {
		for _, p := range s.Points {
			t.rows = append(t.rows, []string{s.Label, strconv.Itoa(p.Year), formatValue(p.Value)})
		}
	}
	return t
}

func countriesTable(infos []model.CountryInfo) *table {
	t := &table{
		header: []string{"CODE", "TOTAL", "FIRST", "LAST", "POINTS", "LATEST", "COLOR"},
		align:  []int{left, right, left, left, right, left, left},
	}
	for _, c := range infos {
		latest := "no"
		if c.HasLatest {
			latest = "yes"
		}
		t.rows = append(t.rows, []string{
			c.Code,
			formatValue(c.Total),
			strconv.Itoa(c.FirstYear),
			strconv.Itoa(c.LastYear),
			strconv.Itoa(c.Count),
			latest,
			c.Color,
		})
	}
	return t
}

func summaryTable(reports []analyze.Report) *table {
	t := &table{
		header: []string{"SERIES", "YEARS", "N", "MEAN", "MIN", "MAX", "CHANGE", "TREND/YR", "R²", "DIRECTION"},
		align:  []int{left, left, right, right, right, right, right, right, right, left},
	}
	for _, r := range reports {
		s := r.Summary
		years := ""
		if s.Count-s.Missing > 0 {
			years = fmt.Sprintf("%d–%d", s.FirstYear, s.LastYear)
		}
		slope, r2, dir := ".", ".", ""
		if r.Trend != nil {
			slope = fmtStat(r.Trend.Slope)
			r2 = fmtStat(r.Trend.R2)
			dir = r.Trend.Direction
		}
		t.rows = append(t.rows, []string{
			s.Series,
			years,
			strconv.Itoa(s.Count - s.Missing),
			fmtStat(s.Mean),
			fmtStat(s.Min),
			fmtStat(s.Max),
			fmtStatPct(s.ChangePct),
			slope,
			r2,
			dir,
		})
	}
	return t
}

func presetsTable(presets []model.Preset) *table {
	t := &table{
		header: []string{"NAME", "VARIANT", "COUNTRIES", "TOTALS", "SAVED"},
		align:  []int{left, left, left, left, left},
	}
	for _, p := range presets {
		var totals []string
		if p.TotalAll {
			totals = append(totals, "all")
		}
		if p.TotalComplete {
			totals = append(totals, "complete")
		}
		saved := ""
		if !p.SavedAt.IsZero() {
			saved = p.SavedAt.Format("2006-01-02 15:04")
		}
		t.rows = append(t.rows, []string{
			p.Name,
			p.Variant,
			strings.Join(p.Countries, ","),
			strings.Join(totals, ","),
			saved,
		})
	}
	return t
}

// kvTable renders FIELD/VALUE pairs, as used by detail views.
func kvTable(rows [][]string) *table {
	return &table{header: []string{"FIELD", "VALUE"}, align: []int{left, left}, rows: rows}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case []model.Series:
		return pipeline.WriteSeries(w, data)
	case []model.CountryInfo:
		for _, c := range data {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	case []analyze.Report:
		for _, r := range data {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case []model.Preset:
		for _, p := range data {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	t, err := tableFor(result)
	if err != nil {
		// Fallback: JSON
		return renderJSON(w, result)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment(t.align)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(t.rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	t, err := tableFor(result)
	if err != nil {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	} else {
		header := make([]string, len(t.header))
		for i, h := range t.header {
			header[i] = strings.ToLower(strings.ReplaceAll(h, " ", "_"))
		}
		_ = cw.Write(header)
		for _, row := range t.rows {
			_ = cw.Write(row)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	t, err := tableFor(result)
	if err != nil {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(t.header, " | "))
	seps := make([]string, len(t.header))
	for i := range seps {
		seps[i] = "---"
		if i < len(t.align) && t.align[i] == right {
			seps[i] = "--:"
		}
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := result.Stats.Source
		if src == "" {
			src = "-"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a value for display. Missing values render as ".".
func formatValue(v float64) string {
	if math.IsInf(v, 0) {
		return "."
	}
	return util.FormatValue(v)
}

func fmtStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "."
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtStatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "."
	}
	return fmt.Sprintf("%.2f%%", v)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
