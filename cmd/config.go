package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/config"
	"github.com/derickschaefer/emissions/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage emissions configuration",
	Long:  `Read and write emissions configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Created %s\n", path)
		fmt.Fprintln(out, "  Set data_source to your extract to get started:")
		fmt.Fprintln(out, "    emissions config set data_source ghg.csv")
		return nil
	},
}

// configView is the resolved configuration as printed by config get.
type configView struct {
	DataSource  string  `json:"data_source"`
	Format      string  `json:"default_format"`
	Timeout     string  `json:"timeout"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	MaxSelected int     `json:"max_selected"`
	ListenAddr  string  `json:"listen_addr"`
	EventRate   float64 `json:"event_rate"`
	DBPath      string  `json:"db_path"`
	ConfigFile  string  `json:"config_file"`
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the current resolved configuration, or one config.json key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			f, err := config.ReadFile(config.DefaultConfigFile)
			if err != nil {
				return err
			}
			v, err := f.Get(strings.ToLower(args[0]))
			if err != nil {
				return fmt.Errorf("%w\n\nValid keys: %s", err, strings.Join(config.Keys(), ", "))
			}
			fmt.Fprintln(out, v)
			return nil
		}

		cfg, err := config.Load(globalFlags.Data)
		if err != nil {
			return err
		}
		view := configView{
			DataSource:  orNotSet(cfg.DataSource),
			Format:      cfg.Format,
			Timeout:     cfg.Timeout.String(),
			Width:       cfg.Width,
			Height:      cfg.Height,
			MaxSelected: cfg.MaxSelected,
			ListenAddr:  cfg.ListenAddr,
			EventRate:   cfg.EventRate,
			DBPath:      cfg.DBPath,
			ConfigFile:  cfg.ConfigPath,
		}
		if view.ConfigFile == "" {
			view.ConfigFile = "(not found)"
		}

		format := cfg.Format
		if globalFlags.Format != "" {
			format = globalFlags.Format
		}
		if format == render.FormatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		}
		printKVTableTo(out, [][]string{
			{"data_source", view.DataSource},
			{"default_format", view.Format},
			{"timeout", view.Timeout},
			{"width", fmt.Sprintf("%d px", view.Width)},
			{"height", fmt.Sprintf("%d px", view.Height)},
			{"max_selected", fmt.Sprintf("%d", view.MaxSelected)},
			{"listen_addr", view.ListenAddr},
			{"event_rate", fmt.Sprintf("%.1f events/s", view.EventRate)},
			{"db_path", view.DBPath},
			{"config_file", view.ConfigFile},
		})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if key == "format" {
			key = "default_format"
		}
		path := config.DefaultConfigFile

		f := config.Template()
		if _, err := os.Stat(path); err == nil {
			if f, err = config.ReadFile(path); err != nil {
				return err
			}
		}
		if err := f.Set(key, args[1]); err != nil {
			if errors.Is(err, config.ErrUnknownKey) {
				return fmt.Errorf("%w\n\nValid keys: %s", err, strings.Join(config.Keys(), ", "))
			}
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}
