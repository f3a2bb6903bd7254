package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/emissions/internal/model"
	"github.com/derickschaefer/emissions/internal/store"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Save and reuse chart selections",
	Long: `Presets are named chart selections stored in the local database. A preset
remembers which chart it was made for; chart --preset refuses to apply it to
the other one.

Presets can be exported to and imported from YAML for sharing.`,
}

// ─── preset save ──────────────────────────────────────────────────────────────

var (
	presetSaveSel   selectionFlags
	presetSaveChart string
)

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a chart selection under a name",
	Long: `Replays the selection flags on the chosen chart, exactly as chart does, and
saves the result. Rejected clicks are reported and left out of the preset.`,
	Example: `  emissions preset save europe --country DEU,FRA,ITA,ESP,POL
  emissions preset save world --total-all --total-complete
  emissions preset save laggards --chart progress --country USA,CHN,IND`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := store.ValidateName(name); err != nil {
			return err
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()
		if _, err := deps.Variant(presetSaveChart); err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}

		ds, err := loadDataset(cmd, deps)
		if err != nil {
			return err
		}
		ctl, err := deps.Controller(ds, presetSaveChart)
		if err != nil {
			return err
		}
		warnings := replay(ctl, presetSaveSel.events())
		if !deps.Config.Quiet {
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  %s\n", w)
			}
		}

		p := ctl.Preset(name)
		if len(p.Countries) == 0 && !p.TotalAll && !p.TotalComplete {
			return fmt.Errorf("nothing selected; preset %q not saved", name)
		}
		if err := deps.Store.PutPreset(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved preset %q for the %s chart\n", name, p.Variant)
		return nil
	},
}

// ─── preset list / show ───────────────────────────────────────────────────────

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	Example: `  emissions preset list
  emissions preset list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		presets, err := deps.Store.ListPresets()
		if err != nil {
			return err
		}
		if len(presets) == 0 && !deps.Config.Quiet {
			fmt.Fprintln(cmd.ErrOrStderr(), "No presets saved.")
			fmt.Fprintln(cmd.ErrOrStderr(), "  Use: emissions preset save <name> --country ...")
		}
		return emit(cmd, deps, newResult(model.KindPresets, "preset list", presets, len(presets), start, nil))
	},
}

var presetShowCmd = &cobra.Command{
	Use:               "show <name>",
	Short:             "Print one preset",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completePresetNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		p, found, err := deps.Store.GetPreset(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", store.ErrPresetNotFound, args[0])
		}
		return emit(cmd, deps, newResult(model.KindPresets, "preset show", []model.Preset{p}, 1, start, nil))
	},
}

// ─── preset delete ────────────────────────────────────────────────────────────

var presetDeleteCmd = &cobra.Command{
	Use:               "delete <name>...",
	Short:             "Delete saved presets",
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: completePresetNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		for _, name := range args {
			if err := deps.Store.DeletePreset(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted preset %q\n", name)
		}
		return nil
	},
}

// ─── preset export / import ───────────────────────────────────────────────────

// presetFile is the YAML document written by export and read by import.
type presetFile struct {
	Presets []model.Preset `yaml:"presets"`
}

var presetExportCmd = &cobra.Command{
	Use:   "export [name...]",
	Short: "Write presets as YAML",
	Long:  `Writes the named presets, or all of them, as a YAML document to stdout or --out.`,
	Example: `  emissions preset export > presets.yaml
  emissions preset export europe world --out shared.yaml`,
	ValidArgsFunction: completePresetNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var doc presetFile
		if len(args) == 0 {
			if doc.Presets, err = deps.Store.ListPresets(); err != nil {
				return err
			}
		}
		for _, name := range args {
			p, found, err := deps.Store.GetPreset(name)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %s", store.ErrPresetNotFound, name)
			}
			doc.Presets = append(doc.Presets, p)
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			_ = closeFn()
			return fmt.Errorf("encoding presets: %w", err)
		}
		if err := enc.Close(); err != nil {
			_ = closeFn()
			return err
		}
		return closeFn()
	},
}

var (
	presetImportReplace bool
	presetImportCheck   bool
)

var presetImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Load presets from a YAML file",
	Long: `Reads a YAML document written by export. Existing presets with the same name
are skipped unless --replace is given.

With --check, each preset is applied to its chart over the current dataset
first, and presets naming unknown countries or breaking a chart's rules are
skipped.`,
	Example: `  emissions preset import shared.yaml
  emissions --data ghg.csv preset import shared.yaml --check --replace`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			r = f
		}
		var doc presetFile
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		check := func(model.Preset) error { return nil }
		if presetImportCheck {
			ds, err := loadDataset(cmd, deps)
			if err != nil {
				return err
			}
			check = func(p model.Preset) error {
				name := p.Variant
				if name == "" {
					name = "standard"
				}
				ctl, err := deps.Controller(ds, name)
				if err != nil {
					return err
				}
				return ctl.ApplyPreset(p)
			}
		}

		imported := 0
		for _, p := range doc.Presets {
			if err := store.ValidateName(p.Name); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  skipping: %v\n", err)
				continue
			}
			if !presetImportReplace {
				if _, found, err := deps.Store.GetPreset(p.Name); err != nil {
					return err
				} else if found {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠  skipping %q: already exists (use --replace)\n", p.Name)
					continue
				}
			}
			if err := check(p); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠  skipping %q: %v\n", p.Name, err)
				continue
			}
			if err := deps.Store.PutPreset(p); err != nil {
				return err
			}
			imported++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d of %d presets\n", imported, len(doc.Presets))
		return nil
	},
}

// completePresetNames offers saved preset names. Errors yield no
// suggestions.
func completePresetNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	deps, err := buildDeps()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer deps.Close()
	if err := deps.RequireStore(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	presets, err := deps.Store.ListPresets()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd,
		presetExportCmd, presetImportCmd)

	presetSaveSel.register(presetSaveCmd)
	presetSaveCmd.Flags().StringVar(&presetSaveChart, "chart", "standard",
		"chart the preset is for: standard|progress")
	_ = presetSaveCmd.RegisterFlagCompletionFunc("chart", cobra.FixedCompletions(
		[]string{"standard", "progress"}, cobra.ShellCompDirectiveNoFileComp))

	presetImportCmd.Flags().BoolVar(&presetImportReplace, "replace", false,
		"overwrite presets that already exist")
	presetImportCmd.Flags().BoolVar(&presetImportCheck, "check", false,
		"validate each preset against the dataset before importing")
}
