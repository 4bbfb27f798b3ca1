package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshidash/internal/analytics"
	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/platform/kalshi"
)

// MarketDetail is one market annotated with its order book and trade
// statistics. Prices is the chronological trade price series; Normalized is
// the same series rescaled to 0..100.
type MarketDetail struct {
	Market     domain.Market       `json:"market"`
	Spread     *domain.SpreadStats `json:"spread_stats,omitempty"`
	Momentum   *domain.Momentum    `json:"momentum,omitempty"`
	Prices     []float64           `json:"prices"`
	Normalized []float64           `json:"normalized"`
	TradeCount int                 `json:"trade_count"`
}

// Correlation is the Pearson correlation of two markets' chronological trade
// price series. Value is nil when fewer than analytics.MinCorrelationPoints
// points overlap.
type Correlation struct {
	A      string   `json:"a"`
	B      string   `json:"b"`
	Points int      `json:"points"`
	Value  *float64 `json:"value"`
}

// MarketLookup resolves a ticker from an in-memory universe.
type MarketLookup interface {
	Lookup(ticker string) (domain.Market, bool)
}

// MarketService serves single-market and pairwise views.
type MarketService struct {
	fetcher    domain.MarketFetcher
	universe   MarketLookup
	tradeLimit int
	logger     *slog.Logger
}

// NewMarketService creates a MarketService. universe may be nil, in which case
// every market is fetched upstream.
func NewMarketService(fetcher domain.MarketFetcher, universe MarketLookup, tradeLimit int, logger *slog.Logger) *MarketService {
	if tradeLimit <= 0 {
		tradeLimit = DefaultTradeLimit
	}
	return &MarketService{
		fetcher:    fetcher,
		universe:   universe,
		tradeLimit: tradeLimit,
		logger:     logger.With(slog.String("component", "market_service")),
	}
}

// Detail fetches the market, its order book and its recent trades
// concurrently. The market itself is required; a failed order book or trade
// fetch leaves the matching fields empty.
func (s *MarketService) Detail(ctx context.Context, ticker string) (*MarketDetail, error) {
	var (
		market domain.Market
		book   *domain.Orderbook
		trades []domain.Trade
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.market(gctx, ticker)
		if err != nil {
			return err
		}
		market = m
		return nil
	})
	g.Go(func() error {
		b, err := s.fetcher.GetOrderbook(gctx, ticker)
		if err != nil {
			s.warn(gctx, "orderbook", ticker, err)
			return nil
		}
		book = &b
		return nil
	})
	g.Go(func() error {
		t, err := kalshi.CollectTrades(gctx, s.fetcher, ticker, s.tradeLimit, 0)
		if err != nil {
			s.warn(gctx, "trades", ticker, err)
			return nil
		}
		trades = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("market_service: detail %s: %w", ticker, err)
	}

	prices := domain.TradePrices(domain.Chronological(trades))
	return &MarketDetail{
		Market:     market,
		Spread:     analytics.AnalyzeSpread(book),
		Momentum:   analytics.AnalyzeMomentum(trades),
		Prices:     prices,
		Normalized: analytics.Normalize(prices),
		TradeCount: len(trades),
	}, nil
}

// Correlation computes the Pearson correlation between the chronological
// trade price series of a and b.
func (s *MarketService) Correlation(ctx context.Context, a, b string) (*Correlation, error) {
	var seriesA, seriesB []float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := kalshi.CollectTrades(gctx, s.fetcher, a, s.tradeLimit, 0)
		if err != nil {
			return fmt.Errorf("trades %s: %w", a, err)
		}
		seriesA = domain.TradePrices(domain.Chronological(t))
		return nil
	})
	g.Go(func() error {
		t, err := kalshi.CollectTrades(gctx, s.fetcher, b, s.tradeLimit, 0)
		if err != nil {
			return fmt.Errorf("trades %s: %w", b, err)
		}
		seriesB = domain.TradePrices(domain.Chronological(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("market_service: correlation: %w", err)
	}

	out := &Correlation{A: a, B: b, Points: min(len(seriesA), len(seriesB))}
	if r, ok := analytics.Pearson(seriesA, seriesB); ok {
		out.Value = &r
	}
	return out, nil
}

func (s *MarketService) market(ctx context.Context, ticker string) (domain.Market, error) {
	if s.universe != nil {
		if m, ok := s.universe.Lookup(ticker); ok {
			return m, nil
		}
	}
	return s.fetcher.GetMarket(ctx, ticker)
}

func (s *MarketService) warn(ctx context.Context, kind, ticker string, err error) {
	s.logger.WarnContext(ctx, "market_service: fetch failed",
		slog.String("kind", kind),
		slog.String("ticker", ticker),
		slog.String("error", err.Error()),
	)
}
