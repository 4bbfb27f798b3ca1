package domain

// MarketStatus represents the lifecycle state of a market as reported by the
// exchange.
type MarketStatus string

// The events endpoint filters by unopened, open, closed and settled; market
// objects report a trading market as active.
const (
	MarketStatusUnopened MarketStatus = "unopened"
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusSettled  MarketStatus = "settled"
)

// IsEventStatusFilter reports whether s is accepted by the events status
// filter.
func IsEventStatusFilter(s string) bool {
	switch MarketStatus(s) {
	case MarketStatusUnopened, MarketStatusOpen, MarketStatusClosed, MarketStatusSettled:
		return true
	}
	return false
}

// Market is an immutable snapshot of a Kalshi market. Prices are in cents
// (0..100); nil means the exchange did not report a value.
type Market struct {
	Ticker       string       `json:"ticker"`
	Title        string       `json:"title"`
	EventTicker  string       `json:"event_ticker,omitempty"`
	EventTitle   string       `json:"event_title,omitempty"`
	LastPrice    *int         `json:"last_price,omitempty"`
	YesBid       *int         `json:"yes_bid,omitempty"`
	YesAsk       *int         `json:"yes_ask,omitempty"`
	NoAsk        *int         `json:"no_ask,omitempty"`
	Volume       int64        `json:"volume"`
	OpenInterest int64        `json:"open_interest"`
	Status       MarketStatus `json:"status"`
	Category     string       `json:"category,omitempty"`
}

// Price returns the last traded price and whether it is known.
func (m Market) Price() (int, bool) {
	if m.LastPrice == nil {
		return 0, false
	}
	return *m.LastPrice, true
}

// IsOpen reports whether the market is currently trading.
func (m Market) IsOpen() bool {
	return m.Status == MarketStatusOpen || m.Status == MarketStatusActive
}

// Cents returns a pointer to v. It keeps literal prices short in callers and
// tests.
func Cents(v int) *int {
	return &v
}

// Event groups the markets that share one event ticker. For partition-style
// events the markets are mutually exclusive and exhaustive.
type Event struct {
	EventTicker  string   `json:"event_ticker"`
	SeriesTicker string   `json:"series_ticker,omitempty"`
	Title        string   `json:"title"`
	Category     string   `json:"category,omitempty"`
	Markets      []Market `json:"markets"`
}

// FlattenEvents returns every market of the given events with EventTicker and
// EventTitle filled from the owning event when the market does not carry them.
func FlattenEvents(events []Event) []Market {
	n := 0
	for _, e := range events {
		n += len(e.Markets)
	}
	out := make([]Market, 0, n)
	for _, e := range events {
		for _, m := range e.Markets {
			if m.EventTicker == "" {
				m.EventTicker = e.EventTicker
			}
			if m.EventTitle == "" {
				m.EventTitle = e.Title
			}
			if m.Category == "" {
				m.Category = e.Category
			}
			out = append(out, m)
		}
	}
	return out
}
