package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/kalshidash/internal/arbitrage"
	"github.com/alanyoungcy/kalshidash/internal/cache/redis"
	"github.com/alanyoungcy/kalshidash/internal/config"
	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
	"github.com/alanyoungcy/kalshidash/internal/notify"
	"github.com/alanyoungcy/kalshidash/internal/platform/kalshi"
	"github.com/alanyoungcy/kalshidash/internal/service"
)

// Dependencies bundles everything the commands need. It is constructed by
// Wire and torn down by the returned cleanup function. The Redis-backed
// fields are nil when Redis is disabled.
type Dependencies struct {
	Metrics *metrics.Metrics

	// Upstream
	Kalshi  *kalshi.Client
	Fetcher domain.MarketFetcher

	// Redis
	Cache       domain.SnapshotCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Notifications
	Notifier *notify.Notifier

	// Services
	Universe *service.UniverseService
	Scans    *service.ScanService
	Markets  *service.MarketService
	Arb      *arbitrage.Scanner
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Metrics: metrics.New()}

	// --- Kalshi ---
	deps.Kalshi = kalshi.NewClient(kalshi.Config{
		BaseURL:           cfg.Kalshi.BaseURL,
		APIKeyID:          cfg.Kalshi.APIKey,
		Timeout:           cfg.Kalshi.Timeout.Duration,
		RequestsPerSecond: cfg.Kalshi.RequestsPerSecond,
		Burst:             cfg.Kalshi.Burst,
		Metrics:           deps.Metrics,
		Logger:            logger,
	})
	if cfg.Kalshi.RSAPrivateKeyPath != "" {
		if err := deps.Kalshi.LoadRSAPrivateKeyFile(cfg.Kalshi.RSAPrivateKeyPath); err != nil {
			return nil, nil, fmt.Errorf("wire: kalshi key: %w", err)
		}
	}
	deps.Fetcher = deps.Kalshi

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewSnapshotCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

		deps.Fetcher = service.NewCachedFetcher(deps.Kalshi, deps.Cache, service.CacheTTLs{
			Market:    cfg.Cache.MarketTTL.Duration,
			Orderbook: cfg.Cache.OrderbookTTL.Duration,
			Trades:    cfg.Cache.TradesTTL.Duration,
		}, deps.Metrics, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Universe = service.NewUniverseService(deps.Fetcher, service.UniverseConfig{
		Statuses:        cfg.Universe.Statuses(),
		PageLimit:       cfg.Kalshi.PageLimit,
		MaxPages:        cfg.Kalshi.MaxPages,
		RefreshInterval: cfg.Universe.RefreshInterval.Duration,
	}, deps.Metrics, logger)
	deps.Scans = service.NewScanService(deps.Fetcher, deps.SignalBus, deps.Metrics, logger)
	deps.Markets = service.NewMarketService(deps.Fetcher, deps.Universe, cfg.Scan.TradeLimit, logger)

	arbCfg := arbitrage.ScannerConfig{
		Bus:     deps.SignalBus,
		Locks:   deps.LockManager,
		Metrics: deps.Metrics,
		Logger:  logger,
	}
	if deps.Notifier.Enabled() {
		arbCfg.Notifier = deps.Notifier
	}
	deps.Arb = arbitrage.NewScanner(arbCfg)

	return deps, cleanup, nil
}

// scanOptions maps the scan config section onto service options. A
// configured top_k of zero turns enrichment off.
func scanOptions(cfg config.ScanConfig) service.ScanOptions {
	opts := service.ScanOptions{
		TopN:             cfg.TopN,
		MinScore:         cfg.MinScore,
		TopK:             cfg.TopK,
		FetchConcurrency: cfg.FetchConcurrency,
		TradeLimit:       cfg.TradeLimit,
	}
	if opts.TopK == 0 {
		opts.TopK = -1
	}
	return opts
}
