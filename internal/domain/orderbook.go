package domain

import (
	"sort"
	"time"
)

// PriceLevel is a single price+quantity entry in an orderbook. Price is in
// cents.
type PriceLevel struct {
	Price    int   `json:"price"`
	Quantity int64 `json:"quantity"`
}

// Orderbook holds the resting YES and NO bids for a market. Kalshi only
// publishes bids; a YES ask is implied by the complementary NO bid. Each side
// is ordered best bid first.
type Orderbook struct {
	Ticker    string       `json:"ticker"`
	Yes       []PriceLevel `json:"yes"`
	No        []PriceLevel `json:"no"`
	Timestamp time.Time    `json:"timestamp"`
}

// SortLevels orders both sides of the book best bid first (highest price
// first). It sorts in place and returns the book for chaining.
func (b *Orderbook) SortLevels() *Orderbook {
	byPriceDesc := func(levels []PriceLevel) {
		sort.SliceStable(levels, func(i, j int) bool {
			return levels[i].Price > levels[j].Price
		})
	}
	byPriceDesc(b.Yes)
	byPriceDesc(b.No)
	return b
}
