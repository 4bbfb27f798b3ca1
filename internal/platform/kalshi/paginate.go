package kalshi

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// MaxTradesPageSize is the largest page GET /markets/trades serves.
const MaxTradesPageSize = 1000

// CollectEvents pages through GetEvents until the cursor is empty or
// maxPages pages have been read. maxPages <= 0 means no cap.
func CollectEvents(ctx context.Context, f domain.MarketFetcher, filter domain.EventFilter, maxPages int) ([]domain.Event, error) {
	var events []domain.Event
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		res, err := f.GetEvents(ctx, filter)
		if err != nil {
			return events, fmt.Errorf("kalshi: collect events page %d: %w", page, err)
		}
		events = append(events, res.Events...)
		if res.Cursor == "" {
			break
		}
		filter.Cursor = res.Cursor
	}
	return events, nil
}

// CollectTrades pages through GetTrades until limit trades have been read or
// the cursor is empty. The result stays newest first. pageSize <= 0 asks for
// min(limit, MaxTradesPageSize) per page.
func CollectTrades(ctx context.Context, f domain.MarketFetcher, ticker string, limit, pageSize int) ([]domain.Trade, error) {
	if pageSize <= 0 {
		pageSize = min(limit, MaxTradesPageSize)
	}
	var trades []domain.Trade
	filter := domain.TradeFilter{Limit: pageSize}
	for len(trades) < limit {
		res, err := f.GetTrades(ctx, ticker, filter)
		if err != nil {
			return trades, fmt.Errorf("kalshi: collect trades %s: %w", ticker, err)
		}
		trades = append(trades, res.Trades...)
		if res.Cursor == "" || len(res.Trades) == 0 {
			break
		}
		filter.Cursor = res.Cursor
	}
	if len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}
