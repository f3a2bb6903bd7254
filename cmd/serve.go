package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/server"
)

var (
	serveAddr     string
	serveRate     float64
	serveNoResume bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve both charts as an interactive web page",
	Long: `Loads the dataset once and serves a page with the standard and progress
charts side by side, each with its own checkboxes. Every click is sent to the
server, which redraws the chart or tells the page to revert the box.

Each chart's selection is saved to the local database after every accepted
click and restored on the next start, unless --no-resume is given or the
database cannot be opened.`,
	Example: `  emissions --data ghg.csv serve
  emissions --data https://example.org/ghg.csv serve --addr :9000
  emissions serve --rate 5 --no-resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		addr := deps.Config.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		eventRate := deps.Config.EventRate
		if cmd.Flags().Changed("rate") {
			eventRate = serveRate
		}
		if eventRate < 0 {
			return fmt.Errorf("--rate must be >= 0")
		}

		ds, err := loadDataset(cmd, deps)
		if err != nil {
			return err
		}
		var ctls []*controller.Controller
		for _, v := range controller.Variants() {
			ctl, err := deps.Controller(ds, v.Name)
			if err != nil {
				return err
			}
			ctls = append(ctls, ctl)
		}

		opts := server.Options{EventRate: eventRate}
		if !serveNoResume {
			if err := deps.RequireStore(); err != nil {
				slog.Warn("chart state will not be saved", "err", err)
			} else {
				opts.Store = deps.Store
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d countries from %s on http://%s\n",
				len(ds.CountryCodes()), ds.Source(), addr)
		}
		return server.New(ctls, opts).ListenAndServe(ctx, addr)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "",
		"listen address (overrides env EMISSIONS_ADDR and config listen_addr)")
	serveCmd.Flags().Float64Var(&serveRate, "rate", 0,
		"max UI events per second, 0 = unlimited (default from config event_rate)")
	serveCmd.Flags().BoolVar(&serveNoResume, "no-resume", false,
		"do not restore or save chart state")
}
