package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshidash/internal/arbitrage"
	"github.com/alanyoungcy/kalshidash/internal/server"
	"github.com/alanyoungcy/kalshidash/internal/server/handler"
	"github.com/alanyoungcy/kalshidash/internal/server/ws"
	"github.com/alanyoungcy/kalshidash/internal/service"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API, the WebSocket hub, the universe refresh loop and
// the arbitrage watch until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "starting serve mode",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("redis", a.cfg.Redis.Enabled),
		slog.Bool("notify", deps.Notifier.Enabled()),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Universe.RunLoop(ctx)
	})
	g.Go(func() error {
		return deps.Arb.Run(ctx, deps.Universe, a.cfg.Arbitrage.WatchInterval.Duration)
	})

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		Metrics:        deps.Metrics,
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Universe),
		Status:  handler.NewStatusHandler(deps.Universe, deps.Scans),
		Events:  handler.NewEventHandler(deps.Universe),
		Markets: handler.NewMarketHandler(deps.Markets, a.logger),
		Scans:   handler.NewScanHandler(deps.Scans, deps.Universe, scanOptions(a.cfg.Scan), a.logger),
		Arb:     handler.NewArbHandler(deps.Universe),
	}
	srv := server.NewServer(server.Config{
		Port:               a.cfg.Server.Port,
		CORSOrigins:        a.cfg.Server.CORSOrigins,
		APIKey:             a.cfg.Server.APIKey,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
	}, handlers, server.Deps{
		Hub:         hub,
		Metrics:     deps.Metrics,
		RateLimiter: deps.RateLimiter,
	}, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ScanRequest holds the command-line options of a one-off scan.
type ScanRequest struct {
	Ticker    string
	Sort      string
	Ascending bool
}

// Scan loads the universe once, scans it for markets related to req.Ticker
// and writes the result to w as indented JSON.
func (a *App) Scan(ctx context.Context, req ScanRequest, w io.Writer) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}
	if err := deps.Universe.Refresh(ctx); err != nil {
		return fmt.Errorf("app: load universe: %w", err)
	}

	res, err := deps.Scans.Run(ctx, deps.Universe.Markets(), req.Ticker, scanOptions(a.cfg.Scan))
	if err != nil {
		return fmt.Errorf("app: scan: %w", err)
	}
	if req.Sort != "" {
		if err := service.SortRelated(res.Related, req.Sort, !req.Ascending); err != nil {
			return fmt.Errorf("app: scan: %w", err)
		}
	}
	return writeJSON(w, res)
}

// Arb loads the universe and checks every event for mispricing. With once
// set it writes the results to w and returns; otherwise it keeps the universe
// fresh and alerts on newly mispriced events until ctx is cancelled.
func (a *App) Arb(ctx context.Context, once bool, w io.Writer) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}

	if once {
		if err := deps.Universe.Refresh(ctx); err != nil {
			return fmt.Errorf("app: load universe: %w", err)
		}
		return writeJSON(w, arbitrage.Scan(deps.Universe.Events(), a.cfg.Arbitrage.MispricedOnly))
	}

	a.logger.InfoContext(ctx, "starting arbitrage watch",
		slog.Duration("interval", a.cfg.Arbitrage.WatchInterval.Duration),
		slog.Bool("notify", deps.Notifier.Enabled()),
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Universe.RunLoop(ctx)
	})
	g.Go(func() error {
		return deps.Arb.Run(ctx, deps.Universe, a.cfg.Arbitrage.WatchInterval.Duration)
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("app: encode output: %w", err)
	}
	return nil
}
