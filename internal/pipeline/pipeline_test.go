package pipeline_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/pipeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// jsonl joins lines with newlines and appends a trailing newline.
func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// ─── ReadRecords ──────────────────────────────────────────────────────────────

func TestReadBasic(t *testing.T) {
	input := jsonl(
		`{"country":"DEU","year":2020,"value":8.5}`,
		`{"country":"FRA","year":2021,"value":6.1}`,
	)
	recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Country != "DEU" || recs[0].Year != 2020 || recs[0].Value != 8.5 {
		t.Errorf("rec[0]: got %+v", recs[0])
	}
}

func TestReadOriginalColumnNames(t *testing.T) {
	input := jsonl(`{"REF_AREA":"USA","TIME_PERIOD":"2019","OBS_VALUE":"17.4"}`)
	recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs[0].Country != "USA" || recs[0].Year != 2019 || recs[0].Value != 17.4 {
		t.Errorf("got %+v", recs[0])
	}
}

func TestReadSkipsBlankAndComments(t *testing.T) {
	input := jsonl(
		`// exported by emissions`,
		``,
		`{"country":"DEU","year":2020,"value":1}`,
	)
	recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
}

func TestReadNullAndMissingValues(t *testing.T) {
	input := jsonl(
		`{"country":"DEU","year":2020,"value":null}`,
		`{"country":"DEU","year":2021}`,
	)
	recs, err := pipeline.ReadRecords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs[0].Value != 0 {
		t.Errorf("null value should coerce to 0, got %g", recs[0].Value)
	}
	if !math.IsNaN(recs[1].Value) {
		t.Errorf("missing value should be NaN, got %g", recs[1].Value)
	}
}

func TestReadInvalidJSON(t *testing.T) {
	_, err := pipeline.ReadRecords(strings.NewReader(jsonl(`{"country":`)))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error should mention line number: %v", err)
	}
}

// ─── Write ────────────────────────────────────────────────────────────────────

func TestWriteObservationsRoundTrip(t *testing.T) {
	obs := []model.Observation{
		{CountryCode: "DEU", Year: 2020, Value: 8.5},
		{CountryCode: "FRA", Year: 2020, Value: 6},
	}
	var buf bytes.Buffer
	if err := pipeline.WriteObservations(&buf, obs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if n := len(nonEmptyLines(buf.String())); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
	recs, err := pipeline.ReadRecords(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if recs[1].Country != "FRA" || recs[1].Value != 6 {
		t.Errorf("round trip mismatch: %+v", recs[1])
	}
}

func TestWriteSeriesNullsNaN(t *testing.T) {
	series := []model.Series{{
		Label:  "Total (Selected)",
		Points: []model.SeriesPoint{{Year: 2020, Value: 1}, {Year: 2021, Value: math.NaN()}},
	}}
	var buf bytes.Buffer
	if err := pipeline.WriteSeries(&buf, series); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], `"value":null`) {
		t.Errorf("NaN should be written as null: %s", lines[1])
	}
}
