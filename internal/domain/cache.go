package domain

import (
	"context"
	"time"
)

// SnapshotCache stores upstream snapshots for a short time so repeated views
// do not hit the exchange. Get methods return ErrNotFound on a miss.
type SnapshotCache interface {
	SetMarket(ctx context.Context, m Market, ttl time.Duration) error
	GetMarket(ctx context.Context, ticker string) (Market, error)
	SetOrderbook(ctx context.Context, b Orderbook, ttl time.Duration) error
	GetOrderbook(ctx context.Context, ticker string) (Orderbook, error)
	SetTrades(ctx context.Context, ticker string, page TradePage, ttl time.Duration) error
	GetTrades(ctx context.Context, ticker string) (TradePage, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub fan-out of analytics results.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager hands out short-lived distributed locks. Acquire returns
// ErrLockHeld when another owner holds key; Holder names that owner and
// returns ErrNotFound when key is free.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	Holder(ctx context.Context, key string) (string, error)
}

// Bus channels.
const (
	ChannelScan = "ch:scan"
	ChannelArb  = "ch:arb"
)
