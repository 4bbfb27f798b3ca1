package analytics

import (
	"math"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

const divergenceWindow = 3

// AnalyzeDivergence flags pairs whose recent moves disagree. For each side
// the delta is mean(first three prices) minus mean(last three prices), with
// trades newest first. It returns nil when either side has fewer than
// MinDivergenceTrades priced trades.
func AnalyzeDivergence(target, candidate []domain.Trade) *domain.Divergence {
	tp := domain.TradePrices(target)
	cp := domain.TradePrices(candidate)
	if len(tp) < MinDivergenceTrades || len(cp) < MinDivergenceTrades {
		return nil
	}

	td := windowDelta(tp)
	cd := windowDelta(cp)
	gap := math.Abs(td - cd)

	return &domain.Divergence{
		TargetDelta:    round(td, 1),
		CandidateDelta: round(cd, 1),
		Divergence:     round(gap, 1),
		Direction:      divergenceDirection(td, cd),
	}
}

func windowDelta(prices []float64) float64 {
	return mean(prices[:divergenceWindow]) - mean(prices[len(prices)-divergenceWindow:])
}

func divergenceDirection(td, cd float64) string {
	gap := math.Abs(td - cd)
	switch {
	case td > DeadZoneCents && cd < -DeadZoneCents:
		return domain.DivergenceTargetUp
	case td < -DeadZoneCents && cd > DeadZoneCents:
		return domain.DivergenceTargetDown
	case td > DeadZoneCents && cd > DeadZoneCents && gap > DivergingCents:
		return domain.DivergenceBothUp
	case td < -DeadZoneCents && cd < -DeadZoneCents && gap > DivergingCents:
		return domain.DivergenceBothDown
	default:
		return domain.DivergenceNeutral
	}
}
