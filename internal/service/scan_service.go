package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshidash/internal/analytics"
	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
	"github.com/alanyoungcy/kalshidash/internal/platform/kalshi"
)

// Scan defaults.
const (
	DefaultTopN             = 50
	DefaultMinScore         = 0.15
	DefaultTopK             = 10
	DefaultFetchConcurrency = 5
	DefaultTradeLimit       = 100
)

// ScanOptions tunes one scan. Zero values take the defaults above.
//
// Session identifies the requester, such as one browser tab. A new scan
// supersedes only the scan in flight for the same session; scans without a
// session are never superseded.
type ScanOptions struct {
	TopN             int
	MinScore         float64
	TopK             int
	FetchConcurrency int
	TradeLimit       int
	Session          string
}

func (o ScanOptions) withDefaults() ScanOptions {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.MinScore <= 0 {
		o.MinScore = DefaultMinScore
	}
	if o.TopK < 0 {
		o.TopK = 0
	} else if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = DefaultFetchConcurrency
	}
	if o.TradeLimit <= 0 {
		o.TradeLimit = DefaultTradeLimit
	}
	return o
}

// scanSummary is the bus payload for a committed scan.
type scanSummary struct {
	ID            string    `json:"id"`
	Target        string    `json:"target"`
	Related       int       `json:"related"`
	EnrichedCount int       `json:"enriched_count"`
	FetchFailures int       `json:"fetch_failures"`
	CompletedAt   time.Time `json:"completed_at"`
}

// scanSlot is the scan in flight for one session.
type scanSlot struct {
	gen    uint64
	cancel context.CancelFunc
}

// ScanService finds markets related to a target and enriches the best of them
// with order book and trade statistics. Within a session only the most recent
// Run may commit: starting a new scan cancels the one in flight.
type ScanService struct {
	fetcher domain.MarketFetcher
	bus     domain.SignalBus
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	slots  map[string]*scanSlot
	latest *domain.ScanResult
}

// NewScanService creates a ScanService. bus and m may be nil.
func NewScanService(fetcher domain.MarketFetcher, bus domain.SignalBus, m *metrics.Metrics, logger *slog.Logger) *ScanService {
	return &ScanService{
		fetcher: fetcher,
		bus:     bus,
		metrics: m,
		slots:   make(map[string]*scanSlot),
		logger:  logger.With(slog.String("component", "scan_service")),
	}
}

// Run scans universe for markets related to ticker. It returns
// domain.ErrNotFound when ticker is not in universe and
// domain.ErrScanSuperseded when a newer Run for the same session started
// before this one could commit.
func (s *ScanService) Run(ctx context.Context, universe []domain.Market, ticker string, opts ScanOptions) (*domain.ScanResult, error) {
	opts = opts.withDefaults()
	session := opts.Session
	ctx, gen, cancel := s.begin(ctx, session)
	defer cancel()

	started := time.Now()
	target, ok := findMarket(universe, ticker)
	if !ok {
		s.metrics.ScanFinished(metrics.ScanFailed, 0)
		return nil, fmt.Errorf("scan_service: target %s: %w", ticker, domain.ErrNotFound)
	}

	related := RankRelated(target, universe, opts.TopN, opts.MinScore)
	res := &domain.ScanResult{
		ID:           uuid.NewString(),
		Target:       target,
		Related:      related,
		UniverseSize: len(universe),
		StartedAt:    started,
	}

	k := min(opts.TopK, len(related))
	if k > 0 {
		enriched, failures := s.enrich(ctx, target, related[:k], opts)
		res.EnrichedCount = enriched
		res.FetchFailures = failures
	}
	res.CompletedAt = time.Now()

	// A cancelled caller that was not superseded gets its context error and
	// the partial result is dropped.
	if err := ctx.Err(); err != nil && s.current(session, gen) {
		s.metrics.ScanFinished(metrics.ScanFailed, 0)
		return nil, fmt.Errorf("scan_service: scan %s: %w", ticker, err)
	}
	if err := s.commit(session, gen, res); err != nil {
		s.metrics.ScanFinished(metrics.ScanSuperseded, 0)
		s.logger.DebugContext(ctx, "scan_service: scan superseded",
			slog.String("scan_id", res.ID),
			slog.String("target", ticker),
			slog.String("session", session),
		)
		return nil, err
	}
	s.metrics.ScanFinished(metrics.ScanCompleted, res.CompletedAt.Sub(started))
	s.logger.InfoContext(ctx, "scan_service: scan completed",
		slog.String("scan_id", res.ID),
		slog.String("target", ticker),
		slog.Int("related", len(res.Related)),
		slog.Int("enriched", res.EnrichedCount),
		slog.Int("fetch_failures", res.FetchFailures),
		slog.Duration("elapsed", res.CompletedAt.Sub(started)),
	)

	s.publish(ctx, session, gen, res)
	return res, nil
}

// Latest returns the last committed scan, or nil.
func (s *ScanService) Latest() *domain.ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// begin starts a new generation and cancels the scan in flight for session,
// if any. The returned cleanup releases the session slot.
func (s *ScanService) begin(parent context.Context, session string) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if session != "" {
		if prev := s.slots[session]; prev != nil {
			prev.cancel()
		}
		s.slots[session] = &scanSlot{gen: gen, cancel: cancel}
	}
	s.mu.Unlock()

	return ctx, gen, func() {
		s.mu.Lock()
		if slot := s.slots[session]; slot != nil && slot.gen == gen {
			delete(s.slots, session)
		}
		s.mu.Unlock()
		cancel()
	}
}

func (s *ScanService) current(session string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked(session, gen)
}

func (s *ScanService) currentLocked(session string, gen uint64) bool {
	if session == "" {
		return true
	}
	slot := s.slots[session]
	return slot != nil && slot.gen == gen
}

func (s *ScanService) commit(session string, gen uint64, res *domain.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(session, gen) {
		return domain.ErrScanSuperseded
	}
	s.latest = res
	return nil
}

func (s *ScanService) publish(ctx context.Context, session string, gen uint64, res *domain.ScanResult) {
	if s.bus == nil || !s.current(session, gen) {
		return
	}
	payload, err := json.Marshal(scanSummary{
		ID:            res.ID,
		Target:        res.Target.Ticker,
		Related:       len(res.Related),
		EnrichedCount: res.EnrichedCount,
		FetchFailures: res.FetchFailures,
		CompletedAt:   res.CompletedAt,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelScan, payload); err != nil {
		s.logger.WarnContext(ctx, "scan_service: publish failed",
			slog.String("scan_id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

// enrich fetches series data for related in place. It returns how many
// markets got at least one series and how many fetches failed.
func (s *ScanService) enrich(ctx context.Context, target domain.Market, related []domain.RelatedMarket, opts ScanOptions) (int, int) {
	var failures atomic.Int32
	fail := func(kind, ticker string, err error) {
		failures.Add(1)
		s.metrics.FetchFailed()
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "scan_service: fetch failed",
				slog.String("kind", kind),
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
	}

	targetTrades, err := kalshi.CollectTrades(ctx, s.fetcher, target.Ticker, opts.TradeLimit, 0)
	if err != nil {
		fail("trades", target.Ticker, err)
		targetTrades = nil
	}
	targetSeries := domain.TradePrices(domain.Chronological(targetTrades))

	var enriched atomic.Int32
	g := new(errgroup.Group)
	g.SetLimit(opts.FetchConcurrency)
	for i := range related {
		rm := &related[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			got := false

			book, err := s.fetcher.GetOrderbook(ctx, rm.Ticker)
			if err != nil {
				fail("orderbook", rm.Ticker, err)
			} else {
				rm.Spread = analytics.AnalyzeSpread(&book)
				got = true
			}

			trades, err := kalshi.CollectTrades(ctx, s.fetcher, rm.Ticker, opts.TradeLimit, 0)
			if err != nil {
				fail("trades", rm.Ticker, err)
			} else {
				annotateTrades(rm, targetTrades, targetSeries, trades)
				got = true
			}

			if got {
				rm.Enriched = true
				enriched.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(enriched.Load()), int(failures.Load())
}

// annotateTrades fills the trade-derived statistics of rm. Momentum and
// divergence read trades newest first; correlation and the sparkline use the
// chronological series.
func annotateTrades(rm *domain.RelatedMarket, targetTrades []domain.Trade, targetSeries []float64, trades []domain.Trade) {
	rm.Momentum = analytics.AnalyzeMomentum(trades)
	if len(targetTrades) > 0 {
		rm.Divergence = analytics.AnalyzeDivergence(targetTrades, trades)
	}

	series := domain.TradePrices(domain.Chronological(trades))
	if r, ok := analytics.Pearson(targetSeries, series); ok {
		rm.PriceCorr = &r
	}
	if len(series) > 0 {
		rm.Sparkline = analytics.Normalize(series)
	}
}

func findMarket(universe []domain.Market, ticker string) (domain.Market, bool) {
	for _, m := range universe {
		if m.Ticker == ticker {
			return m, true
		}
	}
	return domain.Market{}, false
}

// RankRelated scores every market of universe against target and returns at
// most topN with a score of at least minScore, best first. Ties keep universe
// order. The target itself is excluded.
func RankRelated(target domain.Market, universe []domain.Market, topN int, minScore float64) []domain.RelatedMarket {
	out := make([]domain.RelatedMarket, 0)
	for _, m := range universe {
		if m.Ticker == target.Ticker {
			continue
		}
		r := analytics.Relatedness(target, m)
		if r.Score < minScore {
			continue
		}
		out = append(out, domain.RelatedMarket{Market: m, Relatedness: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// ErrUnknownSortField is returned by SortRelated for an unsupported field.
var ErrUnknownSortField = errors.New("unknown sort field")

// Sort fields accepted by SortRelated.
const (
	SortScore      = "score"
	SortPriceCorr  = "price_corr"
	SortSpread     = "spread"
	SortSpreadPct  = "spread_pct"
	SortMomentum   = "momentum"
	SortVelocity   = "velocity"
	SortDivergence = "divergence"
	SortVolume     = "volume"
	SortLastPrice  = "last_price"
)

type sortKey func(domain.RelatedMarket) (float64, bool)

func sortKeyFor(field string) (sortKey, bool) {
	switch field {
	case SortScore:
		return func(r domain.RelatedMarket) (float64, bool) { return r.Score, true }, true
	case SortPriceCorr:
		return func(r domain.RelatedMarket) (float64, bool) { return deref(r.PriceCorr) }, true
	case SortSpread:
		return func(r domain.RelatedMarket) (float64, bool) {
			if r.Spread == nil {
				return 0, false
			}
			return deref(r.Spread.Spread)
		}, true
	case SortSpreadPct:
		return func(r domain.RelatedMarket) (float64, bool) {
			if r.Spread == nil {
				return 0, false
			}
			return deref(r.Spread.SpreadPct)
		}, true
	case SortMomentum:
		return func(r domain.RelatedMarket) (float64, bool) {
			if r.Momentum == nil {
				return 0, false
			}
			return r.Momentum.Magnitude, true
		}, true
	case SortVelocity:
		return func(r domain.RelatedMarket) (float64, bool) {
			if r.Momentum == nil {
				return 0, false
			}
			return r.Momentum.Velocity, true
		}, true
	case SortDivergence:
		return func(r domain.RelatedMarket) (float64, bool) {
			if r.Divergence == nil {
				return 0, false
			}
			return r.Divergence.Divergence, true
		}, true
	case SortVolume:
		return func(r domain.RelatedMarket) (float64, bool) { return float64(r.Volume), true }, true
	case SortLastPrice:
		return func(r domain.RelatedMarket) (float64, bool) {
			p, ok := r.Price()
			return float64(p), ok
		}, true
	default:
		return nil, false
	}
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SortRelated sorts results in place by field. Markets without a value for
// field go last in either direction. The sort is stable.
func SortRelated(results []domain.RelatedMarket, field string, descending bool) error {
	key, ok := sortKeyFor(field)
	if !ok {
		return fmt.Errorf("scan_service: sort by %q: %w", field, ErrUnknownSortField)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, aok := key(results[i])
		b, bok := key(results[j])
		switch {
		case aok != bok:
			return aok
		case !aok:
			return false
		case descending:
			return a > b
		default:
			return a < b
		}
	})
	return nil
}
