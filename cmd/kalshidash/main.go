// Command kalshidash is the entry point for the Kalshi related-markets
// dashboard backend. It loads configuration, validates it, sets up logging
// and signal handling, and dispatches to the serve, scan or arb command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/kalshidash/internal/app"
	"github.com/alanyoungcy/kalshidash/internal/config"
)

const defaultConfigPath = "config.toml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kalshidash",
	Short: "Related-market scanner and mispricing monitor for Kalshi",
	Long: `kalshidash loads the open Kalshi event universe, ranks markets related to
a target ticker, enriches the best candidates with orderbook and trade
statistics, and flags events whose YES prices do not sum to roughly 100.

Examples:
  kalshidash serve --config config.toml
  kalshidash scan FED-25DEC-T4.00 --sort price_corr
  kalshidash arb --once`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to TOML configuration file (empty for defaults and environment only)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup loads and validates configuration and builds the logger and App for
// a command. Logs go to stderr so command output on stdout stays parseable.
func setup(cmd *cobra.Command) (*app.App, *slog.Logger, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("kalshidash starting",
		slog.String("command", cmd.Name()),
		slog.String("config", path),
	)
	return app.New(cfg, logger), logger, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// finish treats cancellation by signal as a clean exit.
func finish(logger *slog.Logger, err error) error {
	if errors.Is(err, context.Canceled) {
		logger.Info("kalshidash shut down gracefully")
		return nil
	}
	if err != nil {
		logger.Error("kalshidash exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("kalshidash stopped")
	return nil
}
