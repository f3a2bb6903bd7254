// Package cmd implements the emissions CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/app"
	"github.com/derickschaefer/emissions/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Data    string
	Format  string
	Out     string
	Timeout string
	DB      string
	Quiet   bool
	Verbose bool
	Debug   bool
}

// rootCmd is the base command. Running `emissions` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "emissions",
	Short: "Per-country greenhouse gas emission charts",
	Long: `emissions loads a per-country greenhouse gas extract (REF_AREA, TIME_PERIOD,
OBS_VALUE) and draws it as two interactive line charts: a standard chart with
totals and a five-country limit, and a progress chart on a skewed year axis
coloured by cumulative emissions.

Quick start:
  emissions config init                       # create a config.json
  emissions --data ghg.csv countries          # what is in the extract
  emissions --data ghg.csv chart standard --country USA,DEU --out chart.svg
  emissions --data ghg.csv serve              # web UI with both charts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(globalFlags.Debug, globalFlags.Quiet)
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setupLogging installs a text slog handler on stderr. --debug wins over
// --quiet; the default level only shows warnings.
func setupLogging(debug, quiet bool) {
	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.Data)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	if globalFlags.DB != "" {
		cfg.DBPath = globalFlags.DB
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Data, "data", "",
		"dataset: CSV or JSONL file, http(s) URL, or - for stdin (overrides env EMISSIONS_DATA)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md, or svg|png|ascii for charts")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"dataset download timeout (e.g. 30s, 2m)")
	pf.StringVar(&globalFlags.DB, "db", "",
		"preset database path (overrides env EMISSIONS_DB_PATH)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log dataset loading and HTTP requests")
}
