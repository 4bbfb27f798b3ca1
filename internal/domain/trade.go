package domain

import "time"

// TakerSide is the side the aggressing order took.
type TakerSide string

const (
	TakerYes TakerSide = "yes"
	TakerNo  TakerSide = "no"
)

// Trade is a single executed trade on a Kalshi market. Prices are in cents.
type Trade struct {
	TradeID     string    `json:"trade_id,omitempty"`
	Ticker      string    `json:"ticker,omitempty"`
	CreatedTime time.Time `json:"created_time"`
	TakerSide   TakerSide `json:"taker_side"`
	YesPrice    *int      `json:"yes_price,omitempty"`
	Price       *int      `json:"price,omitempty"`
	Count       int64     `json:"count,omitempty"`
}

// Value returns the YES price of the trade, falling back to the generic price
// field. ok is false when neither is known.
func (t Trade) Value() (price float64, ok bool) {
	if t.YesPrice != nil {
		return float64(*t.YesPrice), true
	}
	if t.Price != nil {
		return float64(*t.Price), true
	}
	return 0, false
}

// TradePrices extracts the known prices of trades, preserving order. Trades
// without a price are skipped.
func TradePrices(trades []Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if p, ok := t.Value(); ok {
			out = append(out, p)
		}
	}
	return out
}

// Chronological returns a copy of trades in reverse order. Kalshi delivers
// trades newest first; the copy runs oldest to newest.
func Chronological(trades []Trade) []Trade {
	out := make([]Trade, len(trades))
	for i, t := range trades {
		out[len(trades)-1-i] = t
	}
	return out
}
