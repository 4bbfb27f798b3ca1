// Package analytics implements the stateless market analytics used by the
// dashboard: keyword extraction, relatedness scoring, series normalization,
// correlation, and orderbook/trade statistics. Every function is pure and safe
// for concurrent use.
package analytics

// Relatedness weights.
const (
	SameEventWeight      = 0.8
	TopicWeight          = 0.6
	PriceProximityWeight = 0.1
)

// Relatedness reasons.
const (
	ReasonSameEvent = "SAME EVENT"
	reasonTopicFmt  = "TOPIC %d%%"
)

// Series thresholds.
const (
	// MinCorrelationPoints is the smallest aligned overlap Pearson will
	// report a coefficient for.
	MinCorrelationPoints = 10
	MinMomentumTrades    = 4
	MinDivergenceTrades  = 3

	// DeadZoneCents suppresses direction changes smaller than one cent.
	DeadZoneCents = 1.0
	// DivergingCents is the delta gap above which two same-direction moves
	// are labelled diverging.
	DivergingCents = 3.0

	// NormalizedMidpoint is emitted for every point of a constant series.
	NormalizedMidpoint = 50.0
	normalizedRange    = 100.0

	minKeywordLen = 3
)

// StopWords are dropped by ExtractKeywords. The set is fixed so keyword
// output is reproducible.
var StopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "any": {}, "can": {}, "had": {}, "her": {},
	"was": {}, "one": {}, "our": {}, "out": {}, "has": {}, "have": {},
	"been": {}, "being": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "shall": {}, "may": {}, "might": {}, "must": {},
	"does": {}, "did": {}, "doing": {}, "with": {}, "from": {}, "into": {},
	"onto": {}, "about": {}, "above": {}, "below": {}, "over": {},
	"under": {}, "after": {}, "before": {}, "between": {}, "during": {},
	"than": {}, "then": {}, "that": {}, "this": {}, "these": {},
	"those": {}, "there": {}, "their": {}, "they": {}, "them": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "its": {}, "his": {},
	"she": {}, "him": {}, "were": {}, "yes": {}, "more": {}, "most": {},
	"less": {}, "least": {}, "such": {}, "only": {}, "also": {},
	"very": {}, "just": {}, "each": {}, "other": {}, "some": {},
	"per": {}, "via": {}, "upon": {}, "within": {}, "without": {},
	"through": {}, "against": {}, "among": {}, "until": {}, "while": {},
	"again": {}, "further": {}, "once": {}, "here": {}, "both": {},
	"few": {}, "nor": {}, "own": {}, "same": {}, "too": {}, "your": {},
}
