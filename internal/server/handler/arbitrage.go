package handler

import (
	"net/http"

	"github.com/alanyoungcy/kalshidash/internal/arbitrage"
	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// ArbHandler serves arbitrage results computed over the loaded universe.
type ArbHandler struct {
	universe UniverseView
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(universe UniverseView) *ArbHandler {
	return &ArbHandler{universe: universe}
}

// listArbResponse wraps the arbitrage results.
type listArbResponse struct {
	Results   []arbitrage.Result `json:"results"`
	Threshold float64            `json:"threshold_pct"`
}

// ListResults returns the arbitrage result of every multi-market event, sorted
// by absolute overround. mispriced=true keeps only mispriced events.
// GET /api/arbitrage?mispriced=true
func (h *ArbHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	if !h.universe.Loaded() {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNoUniverse.Error())
		return
	}

	writeJSON(w, http.StatusOK, listArbResponse{
		Results:   arbitrage.Scan(h.universe.Events(), queryBool(r, "mispriced")),
		Threshold: arbitrage.MispricingThresholdPct,
	})
}
