package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache with JSON values under
// expiring string keys.
//
// Key schema, under the client's prefix:
//
//	snap:market:{ticker} - domain.Market
//	snap:book:{ticker}   - domain.Orderbook
//	snap:trades:{ticker} - domain.TradePage (first page, newest first)
type SnapshotCache struct {
	c   *Client
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{c: c, rdb: c.Underlying()}
}

func (sc *SnapshotCache) marketKey(ticker string) string    { return sc.c.Key("snap", "market", ticker) }
func (sc *SnapshotCache) orderbookKey(ticker string) string { return sc.c.Key("snap", "book", ticker) }
func (sc *SnapshotCache) tradesKey(ticker string) string    { return sc.c.Key("snap", "trades", ticker) }

// SetMarket stores m for ttl.
func (sc *SnapshotCache) SetMarket(ctx context.Context, m domain.Market, ttl time.Duration) error {
	return sc.set(ctx, sc.marketKey(m.Ticker), m, ttl)
}

// GetMarket returns the cached market or domain.ErrNotFound.
func (sc *SnapshotCache) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	var m domain.Market
	err := sc.get(ctx, sc.marketKey(ticker), &m)
	return m, err
}

// SetOrderbook stores b for ttl.
func (sc *SnapshotCache) SetOrderbook(ctx context.Context, b domain.Orderbook, ttl time.Duration) error {
	return sc.set(ctx, sc.orderbookKey(b.Ticker), b, ttl)
}

// GetOrderbook returns the cached orderbook or domain.ErrNotFound.
func (sc *SnapshotCache) GetOrderbook(ctx context.Context, ticker string) (domain.Orderbook, error) {
	var b domain.Orderbook
	err := sc.get(ctx, sc.orderbookKey(ticker), &b)
	return b, err
}

// SetTrades stores the first trade page of ticker for ttl.
func (sc *SnapshotCache) SetTrades(ctx context.Context, ticker string, page domain.TradePage, ttl time.Duration) error {
	return sc.set(ctx, sc.tradesKey(ticker), page, ttl)
}

// GetTrades returns the cached trade page or domain.ErrNotFound.
func (sc *SnapshotCache) GetTrades(ctx context.Context, ticker string) (domain.TradePage, error) {
	var p domain.TradePage
	err := sc.get(ctx, sc.tradesKey(ticker), &p)
	return p, err
}

func (sc *SnapshotCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := sc.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (sc *SnapshotCache) get(ctx context.Context, key string, v any) error {
	data, err := sc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
