package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
	"github.com/alanyoungcy/kalshidash/internal/platform/kalshi"
)

// UniverseConfig controls how the market universe is loaded.
type UniverseConfig struct {
	// Statuses are loaded concurrently and merged. Empty means "open".
	Statuses        []string
	PageLimit       int
	MaxPages        int
	RefreshInterval time.Duration
}

// universeSnapshot is replaced wholesale on every refresh.
type universeSnapshot struct {
	events   []domain.Event
	markets  []domain.Market
	byTicker map[string]int
	loadedAt time.Time
}

// UniverseService holds the latest batch of events and their markets in
// memory. Readers get the snapshot that was current when they asked; a
// refresh never mutates a snapshot in place.
type UniverseService struct {
	fetcher domain.MarketFetcher
	cfg     UniverseConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu   sync.RWMutex
	snap *universeSnapshot
}

// NewUniverseService creates a UniverseService. m may be nil.
func NewUniverseService(fetcher domain.MarketFetcher, cfg UniverseConfig, m *metrics.Metrics, logger *slog.Logger) *UniverseService {
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = []string{"open"}
	}
	return &UniverseService{
		fetcher: fetcher,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With(slog.String("component", "universe_service")),
	}
}

// Refresh pages through every configured status and swaps in the merged
// result. On error the previous snapshot is kept.
func (s *UniverseService) Refresh(ctx context.Context) error {
	pages := make([][]domain.Event, len(s.cfg.Statuses))

	g, gctx := errgroup.WithContext(ctx)
	for i, status := range s.cfg.Statuses {
		g.Go(func() error {
			events, err := kalshi.CollectEvents(gctx, s.fetcher, domain.EventFilter{
				Limit:             s.cfg.PageLimit,
				Status:            status,
				WithNestedMarkets: true,
			}, s.cfg.MaxPages)
			if err != nil {
				return fmt.Errorf("status %s: %w", status, err)
			}
			pages[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("universe_service: refresh: %w", err)
	}

	snap := buildSnapshot(pages)
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.metrics.SetUniverse(len(snap.events), len(snap.markets))
	s.logger.InfoContext(ctx, "universe_service: refreshed",
		slog.Int("events", len(snap.events)),
		slog.Int("markets", len(snap.markets)),
	)
	return nil
}

// buildSnapshot merges event batches, dropping repeated event tickers, and
// flattens their markets.
func buildSnapshot(batches [][]domain.Event) *universeSnapshot {
	seen := make(map[string]bool)
	var events []domain.Event
	for _, batch := range batches {
		for _, e := range batch {
			if seen[e.EventTicker] {
				continue
			}
			seen[e.EventTicker] = true
			events = append(events, e)
		}
	}

	markets := domain.FlattenEvents(events)
	byTicker := make(map[string]int, len(markets))
	for i, m := range markets {
		if _, dup := byTicker[m.Ticker]; !dup {
			byTicker[m.Ticker] = i
		}
	}
	return &universeSnapshot{
		events:   events,
		markets:  markets,
		byTicker: byTicker,
		loadedAt: time.Now(),
	}
}

// RunLoop refreshes immediately and then every RefreshInterval until ctx is
// cancelled. Refresh failures are logged and retried on the next tick.
func (s *UniverseService) RunLoop(ctx context.Context) error {
	interval := s.cfg.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "universe_service: refresh failed",
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *UniverseService) current() *universeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Loaded reports whether at least one refresh succeeded.
func (s *UniverseService) Loaded() bool {
	return s.current() != nil
}

// Events returns the events of the current snapshot. The slice must not be
// modified.
func (s *UniverseService) Events() []domain.Event {
	if snap := s.current(); snap != nil {
		return snap.events
	}
	return nil
}

// Markets returns the flattened markets of the current snapshot. The slice
// must not be modified.
func (s *UniverseService) Markets() []domain.Market {
	if snap := s.current(); snap != nil {
		return snap.markets
	}
	return nil
}

// Lookup finds a market by ticker in the current snapshot.
func (s *UniverseService) Lookup(ticker string) (domain.Market, bool) {
	snap := s.current()
	if snap == nil {
		return domain.Market{}, false
	}
	i, ok := snap.byTicker[ticker]
	if !ok {
		return domain.Market{}, false
	}
	return snap.markets[i], true
}

// LoadedAt returns when the current snapshot was built, or the zero time.
func (s *UniverseService) LoadedAt() time.Time {
	if snap := s.current(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}
