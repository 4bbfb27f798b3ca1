package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
)

// CacheTTLs sets how long each snapshot kind stays cached. A zero TTL
// disables caching for that kind.
type CacheTTLs struct {
	Market    time.Duration
	Orderbook time.Duration
	Trades    time.Duration
}

// CachedFetcher is a read-through cache in front of an upstream
// domain.MarketFetcher. Cache failures are logged and otherwise ignored: the
// upstream answer is always authoritative. Event listings are not cached.
type CachedFetcher struct {
	upstream domain.MarketFetcher
	cache    domain.SnapshotCache
	ttls     CacheTTLs
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

var _ domain.MarketFetcher = (*CachedFetcher)(nil)

// NewCachedFetcher wraps upstream with cache. m may be nil.
func NewCachedFetcher(
	upstream domain.MarketFetcher,
	cache domain.SnapshotCache,
	ttls CacheTTLs,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CachedFetcher {
	return &CachedFetcher{
		upstream: upstream,
		cache:    cache,
		ttls:     ttls,
		metrics:  m,
		logger:   logger.With(slog.String("component", "cached_fetcher")),
	}
}

// GetEvents always goes upstream.
func (f *CachedFetcher) GetEvents(ctx context.Context, filter domain.EventFilter) (domain.EventPage, error) {
	return f.upstream.GetEvents(ctx, filter)
}

// GetMarket returns the cached market or fetches and caches it.
func (f *CachedFetcher) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	if f.ttls.Market > 0 {
		m, err := f.cache.GetMarket(ctx, ticker)
		if f.hit("market", ticker, err) {
			return m, nil
		}
	}

	m, err := f.upstream.GetMarket(ctx, ticker)
	if err != nil {
		return domain.Market{}, err
	}
	if f.ttls.Market > 0 {
		f.store("market", ticker, f.cache.SetMarket(ctx, m, f.ttls.Market))
	}
	return m, nil
}

// GetOrderbook returns the cached orderbook or fetches and caches it.
func (f *CachedFetcher) GetOrderbook(ctx context.Context, ticker string) (domain.Orderbook, error) {
	if f.ttls.Orderbook > 0 {
		b, err := f.cache.GetOrderbook(ctx, ticker)
		if f.hit("orderbook", ticker, err) {
			return b, nil
		}
	}

	b, err := f.upstream.GetOrderbook(ctx, ticker)
	if err != nil {
		return domain.Orderbook{}, err
	}
	if f.ttls.Orderbook > 0 {
		f.store("orderbook", ticker, f.cache.SetOrderbook(ctx, b, f.ttls.Orderbook))
	}
	return b, nil
}

// GetTrades caches only the first page. A cached page shorter than the
// requested limit is treated as a miss unless it was the last page.
func (f *CachedFetcher) GetTrades(ctx context.Context, ticker string, filter domain.TradeFilter) (domain.TradePage, error) {
	cacheable := f.ttls.Trades > 0 && filter.Cursor == ""
	if cacheable {
		p, err := f.cache.GetTrades(ctx, ticker)
		if err == nil && filter.Limit > 0 && len(p.Trades) < filter.Limit && p.Cursor != "" {
			err = domain.ErrNotFound
		}
		if f.hit("trades", ticker, err) {
			if filter.Limit > 0 && len(p.Trades) > filter.Limit {
				p.Trades = p.Trades[:filter.Limit]
			}
			return p, nil
		}
	}

	p, err := f.upstream.GetTrades(ctx, ticker, filter)
	if err != nil {
		return domain.TradePage{}, err
	}
	if cacheable {
		f.store("trades", ticker, f.cache.SetTrades(ctx, ticker, p, f.ttls.Trades))
	}
	return p, nil
}

// hit records the lookup outcome and reports whether err means a usable
// cached value.
func (f *CachedFetcher) hit(kind, ticker string, err error) bool {
	if err == nil {
		f.metrics.CacheHit(kind)
		return true
	}
	f.metrics.CacheMiss(kind)
	if !errors.Is(err, domain.ErrNotFound) {
		f.logger.Warn("cached_fetcher: cache read failed",
			slog.String("kind", kind),
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
	}
	return false
}

func (f *CachedFetcher) store(kind, ticker string, err error) {
	if err != nil {
		f.logger.Warn("cached_fetcher: cache write failed",
			slog.String("kind", kind),
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
	}
}
