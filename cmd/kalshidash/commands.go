package main

import (
	"github.com/spf13/cobra"

	"github.com/alanyoungcy/kalshidash/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, WebSocket hub and arbitrage watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return finish(logger, a.Serve(cmd.Context()))
	},
}

var (
	scanSort string
	scanAsc  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan TICKER",
	Short: "Scan the universe once for markets related to TICKER",
	Long: `Scan loads the event universe, ranks every market by relatedness to
TICKER, enriches the top candidates and prints the result as JSON.

Sort fields: score, price_corr, spread, spread_pct, momentum, velocity,
divergence, volume, last_price.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		req := app.ScanRequest{Ticker: args[0], Sort: scanSort, Ascending: scanAsc}
		return finish(logger, a.Scan(cmd.Context(), req, cmd.OutOrStdout()))
	},
}

var arbOnce bool

var arbCmd = &cobra.Command{
	Use:   "arb",
	Short: "Check events for mispriced YES totals",
	Long: `Arb reports events whose market YES prices sum far from 100. With --once
it prints the current results as JSON and exits; otherwise it keeps checking
on the configured interval and sends alerts for newly mispriced events.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return finish(logger, a.Arb(cmd.Context(), arbOnce, cmd.OutOrStdout()))
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanSort, "sort", "", "sort related markets by field (default: relatedness score)")
	scanCmd.Flags().BoolVar(&scanAsc, "asc", false, "sort ascending instead of descending")
	arbCmd.Flags().BoolVar(&arbOnce, "once", false, "print one round of results and exit")

	rootCmd.AddCommand(serveCmd, scanCmd, arbCmd)
}
