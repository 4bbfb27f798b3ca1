package analytics

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// Relatedness scores how related candidate is to target. Three additive
// signals contribute: a shared event ticker, keyword overlap of title and
// event title, and price proximity. The first signal that fires sets the
// reason, so SAME EVENT always wins over a topic match. Missing fields make
// their term contribute zero.
func Relatedness(target, candidate domain.Market) domain.Relatedness {
	var r domain.Relatedness

	if target.EventTicker != "" && target.EventTicker == candidate.EventTicker {
		r.Score += SameEventWeight
		r.Reason = ReasonSameEvent
	}

	sim := Jaccard(
		keywordSet(target.Title, target.EventTitle),
		keywordSet(candidate.Title, candidate.EventTitle),
	)
	if sim > 0 {
		r.Score += sim * TopicWeight
		if r.Reason == "" {
			r.Reason = fmt.Sprintf(reasonTopicFmt, int(math.Round(sim*100)))
		}
	}

	// Weak tie-break only. Out-of-range prices can push this term below
	// zero; that is left as is.
	if a, ok := target.Price(); ok {
		if b, ok := candidate.Price(); ok {
			r.Score += (1 - math.Abs(float64(a-b))/100) * PriceProximityWeight
		}
	}

	return r
}
