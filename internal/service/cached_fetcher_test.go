package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/metrics"
)

// memoryCache is an in-process domain.SnapshotCache. TTLs are ignored.
type memoryCache struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	books   map[string]domain.Orderbook
	trades  map[string]domain.TradePage
	failGet error
	failSet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		markets: map[string]domain.Market{},
		books:   map[string]domain.Orderbook{},
		trades:  map[string]domain.TradePage{},
	}
}

func (c *memoryCache) SetMarket(_ context.Context, m domain.Market, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet != nil {
		return c.failSet
	}
	c.markets[m.Ticker] = m
	return nil
}

func (c *memoryCache) GetMarket(_ context.Context, ticker string) (domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return domain.Market{}, c.failGet
	}
	m, ok := c.markets[ticker]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memoryCache) SetOrderbook(_ context.Context, b domain.Orderbook, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[b.Ticker] = b
	return nil
}

func (c *memoryCache) GetOrderbook(_ context.Context, ticker string) (domain.Orderbook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[ticker]
	if !ok {
		return domain.Orderbook{}, domain.ErrNotFound
	}
	return b, nil
}

func (c *memoryCache) SetTrades(_ context.Context, ticker string, p domain.TradePage, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades[ticker] = p
	return nil
}

func (c *memoryCache) GetTrades(_ context.Context, ticker string) (domain.TradePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.trades[ticker]
	if !ok {
		return domain.TradePage{}, domain.ErrNotFound
	}
	return p, nil
}

var testTTLs = CacheTTLs{Market: time.Minute, Orderbook: time.Second, Trades: time.Second}

func TestCachedFetcher_ReadThrough(t *testing.T) {
	up := newFakeFetcher()
	up.markets["X"] = domain.Market{Ticker: "X", Title: "x"}
	cache := newMemoryCache()
	f := NewCachedFetcher(up, cache, testTTLs, metrics.New(), discardLogger())
	ctx := context.Background()

	m, err := f.GetMarket(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "x", m.Title)

	m, err = f.GetMarket(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "x", m.Title)
	assert.Equal(t, 1, up.callCount("market", "X"))
}

func TestCachedFetcher_UpstreamErrorNotCached(t *testing.T) {
	up := newFakeFetcher()
	cache := newMemoryCache()
	f := NewCachedFetcher(up, cache, testTTLs, nil, discardLogger())

	_, err := f.GetMarket(context.Background(), "MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, cache.markets)
}

func TestCachedFetcher_CacheFailuresAreNonFatal(t *testing.T) {
	up := newFakeFetcher()
	up.markets["X"] = domain.Market{Ticker: "X"}
	cache := newMemoryCache()
	cache.failGet = errors.New("redis down")
	cache.failSet = errors.New("redis down")
	f := NewCachedFetcher(up, cache, testTTLs, nil, discardLogger())

	for i := 0; i < 2; i++ {
		m, err := f.GetMarket(context.Background(), "X")
		require.NoError(t, err)
		assert.Equal(t, "X", m.Ticker)
	}
	assert.Equal(t, 2, up.callCount("market", "X"))
}

func TestCachedFetcher_TradesFirstPageOnly(t *testing.T) {
	up := newFakeFetcher()
	up.trades["X"] = tradesAt("X", 50, 51, 52, 53)
	cache := newMemoryCache()
	f := NewCachedFetcher(up, cache, testTTLs, nil, discardLogger())
	ctx := context.Background()

	p, err := f.GetTrades(ctx, "X", domain.TradeFilter{Limit: 4})
	require.NoError(t, err)
	assert.Len(t, p.Trades, 4)

	p, err = f.GetTrades(ctx, "X", domain.TradeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, p.Trades, 2)
	assert.Equal(t, 1, up.callCount("trades", "X"))

	_, err = f.GetTrades(ctx, "X", domain.TradeFilter{Cursor: "next", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, up.callCount("trades", "X"))
}

func TestCachedFetcher_ZeroTTLDisables(t *testing.T) {
	up := newFakeFetcher()
	cache := newMemoryCache()
	f := NewCachedFetcher(up, cache, CacheTTLs{}, nil, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := f.GetOrderbook(context.Background(), "X")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, up.callCount("orderbook", "X"))
	assert.Empty(t, cache.books)
}
