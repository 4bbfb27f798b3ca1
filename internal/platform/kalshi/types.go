package kalshi

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiEvent is an event as returned by GET /events.
type KalshiEvent struct {
	EventTicker  string         `json:"event_ticker"`
	SeriesTicker string         `json:"series_ticker"`
	Title        string         `json:"title"`
	SubTitle     string         `json:"sub_title"`
	Category     string         `json:"category"`
	Markets      []KalshiMarket `json:"markets"`
}

// KalshiMarket is a market as returned by the Kalshi REST API. Price fields
// are pointers so a missing value stays distinguishable from zero.
type KalshiMarket struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Status       string `json:"status"`
	YesBid       *int   `json:"yes_bid"`
	YesAsk       *int   `json:"yes_ask"`
	NoBid        *int   `json:"no_bid"`
	NoAsk        *int   `json:"no_ask"`
	LastPrice    *int   `json:"last_price"`
	Volume       int64  `json:"volume"`
	Volume24H    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	Category     string `json:"category"`
	CloseTime    string `json:"close_time"`
}

// KalshiOrderbook is the body of GET /markets/{ticker}/orderbook. Kalshi
// only publishes bids; either side may be null.
type KalshiOrderbook struct {
	Yes []KalshiPriceLevel `json:"yes"`
	No  []KalshiPriceLevel `json:"no"`
}

// KalshiPriceLevel is a single [price, quantity] pair. Price is in cents.
type KalshiPriceLevel struct {
	Price    int
	Quantity int64
}

// UnmarshalJSON decodes the two-element array form used on the wire.
func (l *KalshiPriceLevel) UnmarshalJSON(data []byte) error {
	var pair []json.Number
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("price level: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("price level: want 2 elements, got %d", len(pair))
	}
	price, err := pair[0].Int64()
	if err != nil {
		return fmt.Errorf("price level price: %w", err)
	}
	qty, err := pair[1].Int64()
	if err != nil {
		return fmt.Errorf("price level quantity: %w", err)
	}
	l.Price = int(price)
	l.Quantity = qty
	return nil
}

// KalshiTrade is a single public trade.
type KalshiTrade struct {
	TradeID     string     `json:"trade_id"`
	Ticker      string     `json:"ticker"`
	CreatedTime time.Time  `json:"created_time"`
	TakerSide   string     `json:"taker_side"`
	YesPrice    *int       `json:"yes_price"`
	NoPrice     *int       `json:"no_price"`
	Price       *flexCents `json:"price"`
	Count       int64      `json:"count"`
}

// flexCents accepts a price either in integer cents or as a dollar fraction
// (0.55), which older trade payloads use.
type flexCents int

func (c *flexCents) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*c = flexCents(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	if f <= 1 {
		f *= 100
	}
	*c = flexCents(math.Round(f))
	return nil
}

// KalshiErrorResponse is the error body returned on non-2xx responses. Newer
// API versions nest it under "error".
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e KalshiErrorResponse) codeAndMessage() (string, string) {
	if e.Error != nil {
		return e.Error.Code, e.Error.Message
	}
	return e.Code, e.Message
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// ToDomain converts the DTO to a domain.Market.
func (m KalshiMarket) ToDomain() domain.Market {
	title := m.Title
	if title == "" {
		title = m.Subtitle
	}
	return domain.Market{
		Ticker:       m.Ticker,
		Title:        title,
		EventTicker:  m.EventTicker,
		LastPrice:    m.LastPrice,
		YesBid:       m.YesBid,
		YesAsk:       m.YesAsk,
		NoAsk:        m.NoAsk,
		Volume:       m.Volume,
		OpenInterest: m.OpenInterest,
		Status:       domain.MarketStatus(m.Status),
		Category:     m.Category,
	}
}

// ToDomain converts the DTO to a domain.Event with its nested markets.
func (e KalshiEvent) ToDomain() domain.Event {
	out := domain.Event{
		EventTicker:  e.EventTicker,
		SeriesTicker: e.SeriesTicker,
		Title:        e.Title,
		Category:     e.Category,
		Markets:      make([]domain.Market, 0, len(e.Markets)),
	}
	for _, m := range e.Markets {
		dm := m.ToDomain()
		dm.EventTitle = e.Title
		if dm.EventTicker == "" {
			dm.EventTicker = e.EventTicker
		}
		if dm.Category == "" {
			dm.Category = e.Category
		}
		out.Markets = append(out.Markets, dm)
	}
	return out
}

// ToDomain converts the DTO to a domain.Orderbook sorted best bid first.
func (b KalshiOrderbook) ToDomain(ticker string, ts time.Time) domain.Orderbook {
	conv := func(levels []KalshiPriceLevel) []domain.PriceLevel {
		out := make([]domain.PriceLevel, 0, len(levels))
		for _, l := range levels {
			out = append(out, domain.PriceLevel{Price: l.Price, Quantity: l.Quantity})
		}
		return out
	}
	book := domain.Orderbook{
		Ticker:    ticker,
		Yes:       conv(b.Yes),
		No:        conv(b.No),
		Timestamp: ts,
	}
	book.SortLevels()
	return book
}

// ToDomain converts the DTO to a domain.Trade.
func (t KalshiTrade) ToDomain() domain.Trade {
	out := domain.Trade{
		TradeID:     t.TradeID,
		Ticker:      t.Ticker,
		CreatedTime: t.CreatedTime,
		TakerSide:   domain.TakerSide(t.TakerSide),
		YesPrice:    t.YesPrice,
		Count:       t.Count,
	}
	if t.Price != nil {
		out.Price = domain.Cents(int(*t.Price))
	}
	return out
}
