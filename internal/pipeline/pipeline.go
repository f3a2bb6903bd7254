// Package pipeline provides helpers for reading and writing Observation
// streams via stdin/stdout in JSONL format, the canonical pipe format.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/util"
)

// Record is the raw JSONL row. Year and value may arrive as numbers,
// strings or null; they are coerced with util.Number.
type Record struct {
	Country string
	Year    float64
	Value   float64
}

// ReadRecords reads JSONL records from r. Lines that are blank or start
// with "//" are skipped. Each line must be a JSON object. The country comes
// from "country", "REF_AREA" or the "series" label written by WriteSeries;
// "year" (or "TIME_PERIOD") and "value" (or "OBS_VALUE") are recognised.
func ReadRecords(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var out []Record
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}

		rec := Record{
			Country: stringField(raw, "country", "REF_AREA", "series"),
			Year:    numberField(raw, "year", "TIME_PERIOD"),
			Value:   numberField(raw, "value", "OBS_VALUE"),
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return out, nil
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			switch s := v.(type) {
			case string:
				return s
			case float64:
				return util.FormatValue(s)
			}
		}
	}
	return ""
}

func numberField(raw map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case nil:
			return 0
		case float64:
			return n
		case string:
			return util.Number(n)
		case bool:
			if n {
				return 1
			}
			return 0
		default:
			return math.NaN()
		}
	}
	// Missing field behaves like an undefined property.
	return math.NaN()
}

// WriteObservations writes observations as JSONL to w.
func WriteObservations(w io.Writer, obs []model.Observation) error {
	enc := json.NewEncoder(w)
	for _, o := range obs {
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}

// WriteSeries writes aggregated series as JSONL to w, one row per point.
func WriteSeries(w io.Writer, series []model.Series) error {
	enc := json.NewEncoder(w)
	for _, s := range series {
		for _, p := range s.Points {
			rec := map[string]interface{}{
				"series": s.Label,
				"year":   p.Year,
				"value":  jsonValue(p.Value),
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func jsonValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
