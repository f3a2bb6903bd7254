// Package config handles loading and resolving emissions configuration.
// Resolution order (first non-empty value wins):
//  1. CLI flag --data (and the other global flags, applied by cmd)
//  2. Environment variables EMISSIONS_DATA, EMISSIONS_DB_PATH, EMISSIONS_ADDR
//  3. config.json in the current working directory
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/derickschaefer/emissions/internal/util"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultWidth       = 900
	DefaultHeight      = 500
	DefaultMaxSelected = 5
	DefaultListenAddr  = "127.0.0.1:8080"
	DefaultEventRate   = 20.0
	EnvDataSource      = "EMISSIONS_DATA"
	EnvDBPath          = "EMISSIONS_DB_PATH"
	EnvListenAddr      = "EMISSIONS_ADDR"
)

// ErrUnknownKey is returned by Get and Set for keys File does not have.
var ErrUnknownKey = errors.New("unknown config key")

// File is the on-disk representation of config.json.
type File struct {
	DataSource    string  `json:"data_source"`
	DefaultFormat string  `json:"default_format"`
	Timeout       string  `json:"timeout"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	MaxSelected   int     `json:"max_selected"`
	ListenAddr    string  `json:"listen_addr"`
	EventRate     float64 `json:"event_rate"`
	DBPath        string  `json:"db_path"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	DataSource  string
	Format      string
	Timeout     time.Duration
	Width       int
	Height      int
	MaxSelected int // country limit of the standard chart
	ListenAddr  string
	EventRate   float64 // UI events per second accepted by serve
	DBPath      string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from all sources.
// flagData is the value of --data (empty string if not set).
func Load(flagData string) (*Config, error) {
	cfg := &Config{
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		MaxSelected: DefaultMaxSelected,
		ListenAddr:  DefaultListenAddr,
		EventRate:   DefaultEventRate,
	}

	// Layer 1: config.json (lowest priority). A missing file is fine, a
	// broken one is reported.
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: environment variables
	if v := os.Getenv(EnvDataSource); v != "" {
		cfg.DataSource = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}

	// Layer 3: CLI flag (highest priority)
	if flagData != "" {
		cfg.DataSource = flagData
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".emissions", "emissions.db")
		}
	}

	return cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs util.MultiError
	if c.Timeout <= 0 {
		errs.Add(fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs.Add(fmt.Errorf("chart size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.MaxSelected < 0 {
		errs.Add(fmt.Errorf("max_selected must be >= 0, got %d", c.MaxSelected))
	}
	if c.EventRate < 0 {
		errs.Add(fmt.Errorf("event_rate must be >= 0, got %g", c.EventRate))
	}
	return errs.Err()
}

// loadFile attempts to read config.json from the current working directory.
// A missing file yields an error wrapping os.ErrNotExist.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config.json not found at %s: %w", path, os.ErrNotExist)
		}
		return nil, "", fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, "", fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, path, nil
}

// ReadFile parses the config file at path. A missing file yields a zero File.
func ReadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DataSource != "" {
		cfg.DataSource = f.DataSource
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Width > 0 {
		cfg.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Height = f.Height
	}
	if f.MaxSelected > 0 {
		cfg.MaxSelected = f.MaxSelected
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.EventRate > 0 {
		cfg.EventRate = f.EventRate
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `emissions config init`.
func Template() File {
	return File{
		DataSource:    "",
		DefaultFormat: DefaultFormat,
		Timeout:       DefaultTimeout.String(),
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		MaxSelected:   DefaultMaxSelected,
		ListenAddr:    DefaultListenAddr,
		EventRate:     DefaultEventRate,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// ─── Keys ─────────────────────────────────────────────────────────────────────

// Keys lists the settable config.json keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(*File) string
	set func(*File, string) error
}

var accessors = map[string]accessor{
	"data_source":    stringField(func(f *File) *string { return &f.DataSource }),
	"default_format": stringField(func(f *File) *string { return &f.DefaultFormat }),
	"listen_addr":    stringField(func(f *File) *string { return &f.ListenAddr }),
	"db_path":        stringField(func(f *File) *string { return &f.DBPath }),
	"width":          intField(func(f *File) *int { return &f.Width }),
	"height":         intField(func(f *File) *int { return &f.Height }),
	"max_selected":   intField(func(f *File) *int { return &f.MaxSelected }),
	"timeout": {
		get: func(f *File) string { return f.Timeout },
		set: func(f *File, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("timeout: %w", err)
			}
			f.Timeout = v
			return nil
		},
	},
	"event_rate": {
		get: func(f *File) string { return strconv.FormatFloat(f.EventRate, 'g', -1, 64) },
		set: func(f *File, v string) error {
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("event_rate: %w", err)
			}
			f.EventRate = n
			return nil
		},
	},
}

func stringField(ptr func(*File) *string) accessor {
	return accessor{
		get: func(f *File) string { return *ptr(f) },
		set: func(f *File, v string) error { *ptr(f) = v; return nil },
	}
}

func intField(ptr func(*File) *int) accessor {
	return accessor{
		get: func(f *File) string { return strconv.Itoa(*ptr(f)) },
		set: func(f *File, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v)
			}
			*ptr(f) = n
			return nil
		},
	}
}

// Get returns the value of key in f as a string.
func (f *File) Get(key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return a.get(f), nil
}

// Set parses value and stores it under key.
func (f *File) Set(key, value string) error {
	a, ok := accessors[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return a.set(f, value)
}
