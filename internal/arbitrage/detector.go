// Package arbitrage detects mispriced events. Markets in a partition-style
// event are mutually exclusive and exhaustive, so their YES prices should sum
// to roughly 100 cents; a large gap either way is flagged.
package arbitrage

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// MispricingThresholdPct is the absolute overround above which an event is
// flagged as mispriced.
const MispricingThresholdPct = 15.0

const minPricedMarkets = 2

// Result is the implied-probability summary of one event.
type Result struct {
	EventTicker     string  `json:"event_ticker"`
	Title           string  `json:"title"`
	Category        string  `json:"category,omitempty"`
	TotalImpliedPct float64 `json:"total_implied_pct"`
	Overround       float64 `json:"overround"`
	IsMispriced     bool    `json:"is_mispriced"`
	PricedMarkets   int     `json:"priced_markets"`
	MarketCount     int     `json:"market_count"`
}

// Detect sums the last prices of an event's markets and reports the
// overround. Only markets with a known last price above zero count. It
// returns nil when fewer than two markets are priced.
func Detect(event domain.Event) *Result {
	var total float64
	priced := 0
	for _, m := range event.Markets {
		p, ok := m.Price()
		if !ok || p <= 0 {
			continue
		}
		total += float64(p)
		priced++
	}
	if priced < minPricedMarkets {
		return nil
	}

	overround := total - 100
	return &Result{
		EventTicker:     event.EventTicker,
		Title:           event.Title,
		Category:        event.Category,
		TotalImpliedPct: round1(total),
		Overround:       round1(overround),
		IsMispriced:     math.Abs(overround) > MispricingThresholdPct,
		PricedMarkets:   priced,
		MarketCount:     len(event.Markets),
	}
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
