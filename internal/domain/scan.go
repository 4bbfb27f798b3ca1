package domain

import "time"

// Relatedness is a heuristic affinity between two markets.
type Relatedness struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// SpreadStats summarizes the top of an orderbook. Bid, Ask and the derived
// fields are nil when a side of the book is empty.
type SpreadStats struct {
	BestBid   *float64 `json:"best_bid,omitempty"`
	BestAsk   *float64 `json:"best_ask,omitempty"`
	Spread    *float64 `json:"spread,omitempty"`
	SpreadPct *float64 `json:"spread_pct,omitempty"`
	Midpoint  *float64 `json:"midpoint,omitempty"`
	Depth     int      `json:"depth"`
}

// Momentum direction labels.
const (
	DirectionUp   = "UP"
	DirectionDown = "DOWN"
	DirectionFlat = "FLAT"
)

// Momentum describes recent price movement of a trade sequence.
type Momentum struct {
	Direction  string  `json:"direction"`
	Magnitude  float64 `json:"magnitude"`
	RecentAvg  float64 `json:"recent_avg"`
	OlderAvg   float64 `json:"older_avg"`
	Velocity   float64 `json:"velocity"`
	TradeCount int     `json:"trade_count"`
}

// Divergence direction labels.
const (
	DivergenceTargetUp   = "TARGET UP / MATCH DOWN"
	DivergenceTargetDown = "TARGET DOWN / MATCH UP"
	DivergenceBothUp     = "BOTH UP (DIVERGING)"
	DivergenceBothDown   = "BOTH DOWN (DIVERGING)"
	DivergenceNeutral    = "NEUTRAL"
)

// Divergence compares recent movement of two trade sequences.
type Divergence struct {
	TargetDelta    float64 `json:"target_delta"`
	CandidateDelta float64 `json:"candidate_delta"`
	Divergence     float64 `json:"divergence"`
	Direction      string  `json:"direction"`
}

// RelatedMarket is a candidate market annotated with relatedness and, for the
// enriched top-K, series statistics. Nil fields were not computed or could
// not be fetched.
type RelatedMarket struct {
	Market
	Relatedness
	PriceCorr  *float64     `json:"price_corr,omitempty"`
	Spread     *SpreadStats `json:"spread_stats,omitempty"`
	Momentum   *Momentum    `json:"momentum,omitempty"`
	Divergence *Divergence  `json:"divergence,omitempty"`
	Sparkline  []float64    `json:"sparkline,omitempty"`
	Enriched   bool         `json:"enriched"`
}

// ScanResult is the output of one related-market scan.
type ScanResult struct {
	ID            string          `json:"id"`
	Target        Market          `json:"target"`
	Related       []RelatedMarket `json:"related"`
	UniverseSize  int             `json:"universe_size"`
	EnrichedCount int             `json:"enriched_count"`
	FetchFailures int             `json:"fetch_failures"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}
