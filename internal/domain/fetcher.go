package domain

import "context"

// EventFilter selects a page of events.
type EventFilter struct {
	Cursor            string
	Limit             int
	Status            string
	WithNestedMarkets bool
}

// EventPage is one page of events. An empty Cursor means there is no more
// data.
type EventPage struct {
	Events []Event
	Cursor string
}

// TradeFilter selects a page of trades for a ticker.
type TradeFilter struct {
	Cursor string
	Limit  int
}

// TradePage is one page of trades, newest first. An empty Cursor means there
// is no more data.
type TradePage struct {
	Trades []Trade
	Cursor string
}

// MarketFetcher is the upstream data source the analytics layer consumes.
type MarketFetcher interface {
	GetEvents(ctx context.Context, filter EventFilter) (EventPage, error)
	GetMarket(ctx context.Context, ticker string) (Market, error)
	GetOrderbook(ctx context.Context, ticker string) (Orderbook, error)
	GetTrades(ctx context.Context, ticker string, filter TradeFilter) (TradePage, error)
}
