package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

func fedUniverse() []domain.Market {
	return []domain.Market{
		{Ticker: "FED-T400", Title: "Fed funds above 4.00%", EventTicker: "FED-DEC", EventTitle: "Fed rate decision", LastPrice: domain.Cents(40)},
		{Ticker: "FED-T425", Title: "Fed funds above 4.25%", EventTicker: "FED-DEC", EventTitle: "Fed rate decision", LastPrice: domain.Cents(20)},
		{Ticker: "CPI-MAR", Title: "CPI above 3% in March", EventTicker: "CPI", EventTitle: "Inflation report", LastPrice: domain.Cents(55)},
		{Ticker: "FED-JAN", Title: "Fed cut in January", EventTicker: "FED-JAN", EventTitle: "Fed rate decision January", LastPrice: domain.Cents(35)},
		{Ticker: "NBA", Title: "Lakers win title", EventTicker: "NBA", EventTitle: "Basketball champion"},
	}
}

func TestRankRelated(t *testing.T) {
	u := fedUniverse()
	related := RankRelated(u[0], u, 10, DefaultMinScore)

	require.NotEmpty(t, related)
	assert.Equal(t, "FED-T425", related[0].Ticker)
	assert.Equal(t, "SAME EVENT", related[0].Reason)
	for _, r := range related {
		assert.NotEqual(t, "FED-T400", r.Ticker)
		assert.GreaterOrEqual(t, r.Score, DefaultMinScore)
		assert.NotEqual(t, "NBA", r.Ticker)
	}
	for i := 1; i < len(related); i++ {
		assert.GreaterOrEqual(t, related[i-1].Score, related[i].Score)
	}

	assert.Len(t, RankRelated(u[0], u, 1, DefaultMinScore), 1)
}

func TestScanService_TargetNotFound(t *testing.T) {
	svc := NewScanService(newFakeFetcher(), nil, nil, discardLogger())
	_, err := svc.Run(context.Background(), fedUniverse(), "MISSING", ScanOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, svc.Latest())
}

func TestScanService_Enriches(t *testing.T) {
	f := newFakeFetcher()
	f.trades["FED-T400"] = tradesAt("FED-T400", 48, 47, 46, 45, 44, 43, 42, 41, 40, 39, 38, 37)
	f.trades["FED-T425"] = tradesAt("FED-T425", 30, 29, 28, 27, 26, 25, 24, 23, 22, 21, 20, 19)
	f.books["FED-T425"] = domain.Orderbook{
		Ticker: "FED-T425",
		Yes:    []domain.PriceLevel{{Price: 45, Quantity: 10}},
		No:     []domain.PriceLevel{{Price: 40, Quantity: 10}},
	}
	f.errs["orderbook:FED-JAN"] = errors.New("upstream down")
	bus := &memoryBus{}

	svc := NewScanService(f, bus, nil, discardLogger())
	res, err := svc.Run(context.Background(), fedUniverse(), "FED-T400", ScanOptions{TopK: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "FED-T400", res.Target.Ticker)
	assert.Equal(t, 5, res.UniverseSize)
	require.GreaterOrEqual(t, len(res.Related), 2)

	first := res.Related[0]
	assert.True(t, first.Enriched)
	require.NotNil(t, first.Spread)
	assert.Equal(t, 15.0, *first.Spread.Spread)
	require.NotNil(t, first.Momentum)
	assert.Equal(t, domain.DirectionUp, first.Momentum.Direction)
	require.NotNil(t, first.PriceCorr)
	assert.InDelta(t, 1.0, *first.PriceCorr, 1e-9)
	require.NotNil(t, first.Divergence)
	assert.Len(t, first.Sparkline, 12)
	assert.Equal(t, 0.0, first.Sparkline[0])
	assert.Equal(t, 100.0, first.Sparkline[11])

	for _, r := range res.Related[2:] {
		assert.False(t, r.Enriched)
		assert.Nil(t, r.Spread)
	}

	// The target's trades are fetched once per scan.
	assert.Equal(t, 1, f.callCount("trades", "FED-T400"))

	assert.Same(t, res, svc.Latest())
	require.Equal(t, 1, bus.count(domain.ChannelScan))
	var summary map[string]any
	require.NoError(t, json.Unmarshal(bus.messages[domain.ChannelScan][0], &summary))
	assert.Equal(t, res.ID, summary["id"])
}

func TestScanService_FetchFailureIsCounted(t *testing.T) {
	f := newFakeFetcher()
	f.errs["orderbook:FED-T425"] = errors.New("boom")
	f.errs["trades:FED-T425"] = errors.New("boom")

	svc := NewScanService(f, nil, nil, discardLogger())
	res, err := svc.Run(context.Background(), fedUniverse(), "FED-T400", ScanOptions{TopK: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FetchFailures)
	assert.Equal(t, 0, res.EnrichedCount)
	assert.False(t, res.Related[0].Enriched)
	assert.Nil(t, res.Related[0].Spread)
	assert.Nil(t, res.Related[0].Momentum)
}

func TestScanService_NewerScanSupersedes(t *testing.T) {
	f := newFakeFetcher()
	f.blockTrade = make(chan struct{})
	bus := &memoryBus{}
	svc := NewScanService(f, bus, nil, discardLogger())

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), fedUniverse(), "FED-T400", ScanOptions{Session: "tab-1"})
		firstErr <- err
	}()

	// Wait until the first scan is blocked fetching its target trades.
	require.Eventually(t, func() bool {
		return f.callCount("trades", "FED-T400") == 1
	}, time.Second, time.Millisecond)

	f.mu.Lock()
	f.blockTrade = nil
	f.mu.Unlock()

	second, err := svc.Run(context.Background(), fedUniverse(), "FED-T425", ScanOptions{Session: "tab-1"})
	require.NoError(t, err)

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, domain.ErrScanSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first scan did not finish")
	}

	assert.Same(t, second, svc.Latest())
	assert.Equal(t, 1, bus.count(domain.ChannelScan))
}

func TestScanService_SessionsAreIndependent(t *testing.T) {
	for _, sessions := range [][2]string{{"tab-1", "tab-2"}, {"", ""}} {
		t.Run(sessions[0]+"/"+sessions[1], func(t *testing.T) {
			f := newFakeFetcher()
			f.blockTrade = make(chan struct{})
			svc := NewScanService(f, nil, nil, discardLogger())

			errs := make(chan error, 2)
			run := func(ticker, session string) {
				_, err := svc.Run(context.Background(), fedUniverse(), ticker, ScanOptions{Session: session})
				errs <- err
			}
			go run("FED-T400", sessions[0])
			go run("FED-T425", sessions[1])

			// Both scans are in flight before either may finish.
			require.Eventually(t, func() bool {
				return f.callCount("trades", "FED-T400") >= 1 && f.callCount("trades", "FED-T425") >= 1
			}, time.Second, time.Millisecond)
			close(f.blockTrade)

			for i := 0; i < 2; i++ {
				select {
				case err := <-errs:
					assert.NoError(t, err)
				case <-time.After(2 * time.Second):
					t.Fatal("scan did not finish")
				}
			}
			assert.NotNil(t, svc.Latest())
		})
	}
}

func TestScanService_BoundsFetchConcurrency(t *testing.T) {
	universe := []domain.Market{{Ticker: "EV-T", Title: "Target", EventTicker: "EV"}}
	for i := 0; i < 12; i++ {
		universe = append(universe, domain.Market{
			Ticker:      fmt.Sprintf("EV-%02d", i),
			Title:       fmt.Sprintf("Outcome %d", i),
			EventTicker: "EV",
		})
	}
	f := newFakeFetcher()
	f.delay = 5 * time.Millisecond
	svc := NewScanService(f, nil, nil, discardLogger())

	res, err := svc.Run(context.Background(), universe, "EV-T", ScanOptions{TopK: 12, FetchConcurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, 12, res.EnrichedCount)
	assert.LessOrEqual(t, f.peakInFlight(), 3)
	assert.Positive(t, f.peakInFlight())
}

func TestScanService_NothingToEnrich(t *testing.T) {
	f := newFakeFetcher()
	svc := NewScanService(f, nil, nil, discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)

		// A lone target has no related markets, so k is zero.
		res, err := svc.Run(context.Background(), fedUniverse()[4:], "NBA", ScanOptions{})
		assert.NoError(t, err)
		assert.Empty(t, res.Related)
		assert.Zero(t, res.EnrichedCount)

		// A negative TopK turns enrichment off.
		res, err = svc.Run(context.Background(), fedUniverse(), "FED-T400", ScanOptions{TopK: -1})
		assert.NoError(t, err)
		assert.NotEmpty(t, res.Related)
		assert.Zero(t, res.EnrichedCount)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scan with nothing to enrich did not return")
	}
	assert.Zero(t, f.callCount("trades", "FED-T400"))
	assert.Zero(t, f.callCount("orderbook", "FED-T425"))
}

func TestScanService_PagesTrades(t *testing.T) {
	f := newFakeFetcher()
	f.pageSize = 4
	f.trades["FED-T400"] = tradesAt("FED-T400", 50, 49, 48, 47, 46, 45, 44, 43, 42, 41)
	svc := NewScanService(f, nil, nil, discardLogger())

	_, err := svc.Run(context.Background(), fedUniverse(), "FED-T400", ScanOptions{TopK: 1, TradeLimit: 10})
	require.NoError(t, err)

	assert.Equal(t, 3, f.callCount("trades", "FED-T400"))
}

func TestScanService_CancelledCallerDoesNotCommit(t *testing.T) {
	f := newFakeFetcher()
	f.blockTrade = make(chan struct{})
	svc := NewScanService(f, nil, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(ctx, fedUniverse(), "FED-T400", ScanOptions{})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.callCount("trades", "FED-T400") == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not stop")
	}
	assert.Nil(t, svc.Latest())
}

func TestSortRelated(t *testing.T) {
	corr := func(v float64) *float64 { return &v }
	results := []domain.RelatedMarket{
		{Market: domain.Market{Ticker: "A"}, PriceCorr: corr(0.2)},
		{Market: domain.Market{Ticker: "B"}},
		{Market: domain.Market{Ticker: "C"}, PriceCorr: corr(-0.5)},
		{Market: domain.Market{Ticker: "D"}, PriceCorr: corr(0.9)},
	}
	tickers := func() []string {
		out := make([]string, len(results))
		for i, r := range results {
			out[i] = r.Ticker
		}
		return out
	}

	require.NoError(t, SortRelated(results, SortPriceCorr, true))
	assert.Equal(t, []string{"D", "A", "C", "B"}, tickers())

	require.NoError(t, SortRelated(results, SortPriceCorr, false))
	assert.Equal(t, []string{"C", "A", "D", "B"}, tickers())
}

func TestSortRelated_Fields(t *testing.T) {
	results := []domain.RelatedMarket{
		{Market: domain.Market{Ticker: "A", Volume: 10, LastPrice: domain.Cents(70)}, Momentum: &domain.Momentum{Magnitude: 1, Velocity: -2}},
		{Market: domain.Market{Ticker: "B", Volume: 30}, Divergence: &domain.Divergence{Divergence: 4}},
		{Market: domain.Market{Ticker: "C", Volume: 20, LastPrice: domain.Cents(10)}, Momentum: &domain.Momentum{Magnitude: 5, Velocity: 3}},
	}

	require.NoError(t, SortRelated(results, SortVolume, true))
	assert.Equal(t, "B", results[0].Ticker)

	require.NoError(t, SortRelated(results, SortLastPrice, false))
	assert.Equal(t, "C", results[0].Ticker)
	assert.Equal(t, "B", results[2].Ticker)

	require.NoError(t, SortRelated(results, SortVelocity, true))
	assert.Equal(t, "C", results[0].Ticker)
	assert.Equal(t, "B", results[2].Ticker)

	require.NoError(t, SortRelated(results, SortDivergence, true))
	assert.Equal(t, "B", results[0].Ticker)

	err := SortRelated(results, "nope", true)
	assert.ErrorIs(t, err, ErrUnknownSortField)
}
