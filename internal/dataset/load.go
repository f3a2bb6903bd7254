package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/pipeline"
	"github.com/derickschaefer/emissions/internal/util"
)

// Column names of the OECD air-emissions extract.
const (
	ColCountry = "REF_AREA"
	ColYear    = "TIME_PERIOD"
	ColValue   = "OBS_VALUE"
)

// LoadError reports a dataset that could not be fetched or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("loading dataset: %v", e.Err)
	}
	return fmt.Sprintf("loading dataset %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrMissingColumn is wrapped by LoadError when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ─── Readers ──────────────────────────────────────────────────────────────────

// Load parses a CSV stream with a header row. Columns are located by name;
// columns other than REF_AREA, TIME_PERIOD and OBS_VALUE are ignored.
func Load(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return New(nil), nil
	}
	if err != nil {
		return nil, &LoadError{Err: fmt.Errorf("reading header: %w", err)}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		// Excel exports prefix the first header with a BOM.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	var missing []string
	for _, name := range []string{ColCountry, ColYear, ColValue} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Err: fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))}
	}
	ci, yi, vi := cols[ColCountry], cols[ColYear], cols[ColValue]

	var obs []model.Observation
	dropped := 0
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("line %d: %w", line, err)}
		}
		code := field(rec, ci)
		o, ok := observation(code, util.Number(field(rec, yi)), util.Number(field(rec, vi)))
		if !ok {
			dropped++
			continue
		}
		obs = append(obs, o)
	}
	return finish(obs, dropped), nil
}

// LoadJSONL parses JSONL observation records as written by the series and
// countries commands. The same retention rule as Load applies.
func LoadJSONL(r io.Reader) (*Dataset, error) {
	recs, err := pipeline.ReadRecords(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	var obs []model.Observation
	dropped := 0
	for _, rec := range recs {
		o, ok := observation(rec.Country, rec.Year, rec.Value)
		if !ok {
			dropped++
			continue
		}
		obs = append(obs, o)
	}
	return finish(obs, dropped), nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// observation applies the retention rule to one coerced row.
func observation(code string, year, value float64) (model.Observation, bool) {
	if !Keep(code, year, value) {
		return model.Observation{}, false
	}
	if math.IsInf(year, 0) || math.IsInf(value, 0) || year != math.Trunc(year) {
		return model.Observation{}, false
	}
	return model.Observation{CountryCode: code, Year: int(year), Value: value}, true
}

func finish(obs []model.Observation, dropped int) *Dataset {
	d := New(obs)
	d.dropped = dropped
	slog.Debug("dataset loaded", "rows", len(obs), "dropped", dropped,
		"countries", len(d.codes), "min_year", d.minYear, "max_year", d.maxYear)
	return d
}

// ─── Sources ──────────────────────────────────────────────────────────────────

// OpenOptions controls how Open fetches a source.
type OpenOptions struct {
	Timeout time.Duration
	Stdin   io.Reader // used for "-"; defaults to os.Stdin
	Client  *http.Client
}

// Open loads a dataset from source: an http(s) URL, "-" for stdin, a .jsonl
// file or a CSV file. Remote sources are fetched once, without retry.
func Open(ctx context.Context, source string, opts OpenOptions) (*Dataset, error) {
	if source == "" {
		return nil, &LoadError{Err: errors.New("no data source configured (use --data or EMISSIONS_DATA)")}
	}
	d, err := open(ctx, source, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = source
		} else {
			err = &LoadError{Source: source, Err: err}
		}
		slog.Error("dataset load failed", "source", source, "err", err)
		return nil, err
	}
	d.source = source
	return d, nil
}

func open(ctx context.Context, source string, opts OpenOptions) (*Dataset, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetch(ctx, source, opts)
	case source == "-":
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return Load(in)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(strings.ToLower(source), ".jsonl") {
		return LoadJSONL(f)
	}
	return Load(f)
}

func fetch(ctx context.Context, url string, opts OpenOptions) (*Dataset, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, application/x-ndjson;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", "emissions-cli/1.0")

	slog.Debug("dataset request", "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	slog.Debug("dataset response", "status", resp.StatusCode, "content_length", resp.ContentLength)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if strings.HasSuffix(strings.ToLower(req.URL.Path), ".jsonl") {
		return LoadJSONL(resp.Body)
	}
	return Load(resp.Body)
}
