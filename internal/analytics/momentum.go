package analytics

import (
	"math"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// AnalyzeMomentum compares the mean price of the first half of trades with
// the second half and fits a regression slope over all of them. Trades are
// taken in the order given (Kalshi delivers newest first, so index 0 is the
// newest trade and a rising market has a negative velocity). It returns nil
// for fewer than MinMomentumTrades priced trades. TradeCount is len(trades),
// unpriced trades included.
func AnalyzeMomentum(trades []domain.Trade) *domain.Momentum {
	prices := domain.TradePrices(trades)
	n := len(prices)
	if n < MinMomentumTrades {
		return nil
	}

	half := n / 2
	recent := mean(prices[:half])
	older := mean(prices[half:])

	dir := domain.DirectionFlat
	switch {
	case recent-older > DeadZoneCents:
		dir = domain.DirectionUp
	case older-recent > DeadZoneCents:
		dir = domain.DirectionDown
	}

	return &domain.Momentum{
		Direction:  dir,
		Magnitude:  round(math.Abs(recent-older), 1),
		RecentAvg:  round(recent, 1),
		OlderAvg:   round(older, 1),
		Velocity:   round(slope(prices), 2),
		TradeCount: len(trades),
	}
}
