package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/kalshidash/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer.
type MarketService interface {
	Detail(ctx context.Context, ticker string) (*service.MarketDetail, error)
	Correlation(ctx context.Context, a, b string) (*service.Correlation, error)
}

// MarketHandler serves single-market and pairwise endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// GetMarket returns one market with spread, momentum and its price series.
// GET /api/markets/{ticker}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing market ticker")
		return
	}

	detail, err := h.markets.Detail(r.Context(), ticker)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("ticker", ticker),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// GetCorrelation returns the Pearson correlation of two markets' trade prices.
// GET /api/correlation?a=TICKER&b=TICKER
func (h *MarketHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}

	corr, err := h.markets.Correlation(r.Context(), a, b)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: correlation failed",
			slog.String("a", a),
			slog.String("b", b),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "failed to compute correlation")
		return
	}

	writeJSON(w, http.StatusOK, corr)
}
