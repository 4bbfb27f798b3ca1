package service

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves canned data and counts calls per method and ticker.
type fakeFetcher struct {
	mu         sync.Mutex
	markets    map[string]domain.Market
	books      map[string]domain.Orderbook
	trades     map[string][]domain.Trade
	events     map[string][]domain.Event // by status
	errs       map[string]error          // by "kind:ticker"
	calls      map[string]int            // by "kind:ticker"
	blockTrade chan struct{}             // when set, GetTrades waits on it or ctx
	delay      time.Duration             // held inside every book and trade fetch
	pageSize   int                       // when set, GetTrades pages with offset cursors
	limits     []int                     // Limit of every GetTrades call
	inFlight   int
	peak       int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		markets: map[string]domain.Market{},
		books:   map[string]domain.Orderbook{},
		trades:  map[string][]domain.Trade{},
		events:  map[string][]domain.Event{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) record(kind, ticker string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[kind+":"+ticker]++
	return f.errs[kind+":"+ticker]
}

func (f *fakeFetcher) callCount(kind, ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind+":"+ticker]
}

func (f *fakeFetcher) GetEvents(_ context.Context, filter domain.EventFilter) (domain.EventPage, error) {
	if err := f.record("events", filter.Status); err != nil {
		return domain.EventPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.EventPage{Events: f.events[filter.Status]}, nil
}

func (f *fakeFetcher) GetMarket(_ context.Context, ticker string) (domain.Market, error) {
	if err := f.record("market", ticker); err != nil {
		return domain.Market{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.markets[ticker]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// enter tracks concurrent book and trade fetches; the returned func leaves.
func (f *fakeFetcher) enter() func() {
	f.mu.Lock()
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	delay := f.delay
	f.mu.Unlock()
	time.Sleep(delay)
	return func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *fakeFetcher) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func (f *fakeFetcher) GetOrderbook(_ context.Context, ticker string) (domain.Orderbook, error) {
	defer f.enter()()
	if err := f.record("orderbook", ticker); err != nil {
		return domain.Orderbook{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books[ticker], nil
}

func (f *fakeFetcher) GetTrades(ctx context.Context, ticker string, filter domain.TradeFilter) (domain.TradePage, error) {
	defer f.enter()()
	if err := f.record("trades", ticker); err != nil {
		return domain.TradePage{}, err
	}
	f.mu.Lock()
	block := f.blockTrade
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.TradePage{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, filter.Limit)
	trades := f.trades[ticker]
	if f.pageSize > 0 {
		start, _ := strconv.Atoi(filter.Cursor)
		end := min(start+min(filter.Limit, f.pageSize), len(trades))
		page := domain.TradePage{Trades: trades[start:end]}
		if end < len(trades) {
			page.Cursor = strconv.Itoa(end)
		}
		return page, nil
	}
	if filter.Limit > 0 && len(trades) > filter.Limit {
		trades = trades[:filter.Limit]
	}
	return domain.TradePage{Trades: trades}, nil
}

// tradesAt builds a newest-first trade slice from prices.
func tradesAt(ticker string, prices ...int) []domain.Trade {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Trade, len(prices))
	for i, p := range prices {
		out[i] = domain.Trade{
			Ticker:      ticker,
			TradeID:     ticker + "-" + string(rune('a'+i)),
			CreatedTime: now.Add(-time.Duration(i) * time.Minute),
			YesPrice:    domain.Cents(p),
		}
	}
	return out
}

type memoryBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (b *memoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = map[string][][]byte{}
	}
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *memoryBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *memoryBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[channel])
}
