package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the release string, overwritten at build time with
//
//	go build -ldflags "-X github.com/derickschaefer/emissions/cmd.Version=v0.3.0"
var Version = "v0.2.0-dev"

// versionInfo is the --format json payload.
type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	BuildTime string `json:"build_time,omitempty"`
}

// BuildTime is optionally injected alongside Version.
var BuildTime = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the emissions version and build information",
	Example: `  emissions version
  emissions version --format json | jq .version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := globalFlags.Format
		info := versionInfo{
			Version:   Version,
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			BuildTime: BuildTime,
		}

		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)

		case "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
			return nil

		default:
			rows := [][]string{
				{"emissions", info.Version},
				{"go", info.GoVersion},
				{"os", info.GOOS + "/" + info.GOARCH},
			}
			if info.BuildTime != "" {
				rows = append(rows, []string{"built", info.BuildTime})
			}
			printKVTableTo(cmd.OutOrStdout(), rows)
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
