package analytics

import "github.com/alanyoungcy/kalshidash/internal/domain"

// AnalyzeSpread derives best bid, best ask, spread, spread percentage,
// midpoint and depth from an orderbook. It returns nil when book is nil.
//
// The best bid is the top YES bid. The best ask is 100 minus the top NO bid,
// since selling YES is economically the same as taking the complementary NO
// bid. Depth counts levels on both sides and is reported even when one side
// is empty.
func AnalyzeSpread(book *domain.Orderbook) *domain.SpreadStats {
	if book == nil {
		return nil
	}

	stats := &domain.SpreadStats{Depth: len(book.Yes) + len(book.No)}
	if len(book.Yes) > 0 {
		stats.BestBid = ptr(float64(book.Yes[0].Price))
	}
	if len(book.No) > 0 {
		stats.BestAsk = ptr(float64(100 - book.No[0].Price))
	}
	if stats.BestBid == nil || stats.BestAsk == nil {
		return stats
	}

	bid, ask := *stats.BestBid, *stats.BestAsk
	spread := ask - bid
	mid := (bid + ask) / 2
	pct := 0.0
	if mid != 0 {
		pct = spread / mid * 100
	}
	stats.Spread = ptr(spread)
	stats.Midpoint = ptr(mid)
	stats.SpreadPct = ptr(round(pct, 2))
	return stats
}
