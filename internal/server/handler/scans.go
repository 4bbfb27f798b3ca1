package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/kalshidash/internal/domain"
	"github.com/alanyoungcy/kalshidash/internal/service"
)

// ScanService defines the methods that the scan handler requires.
type ScanService interface {
	Run(ctx context.Context, universe []domain.Market, ticker string, opts service.ScanOptions) (*domain.ScanResult, error)
	Latest() *domain.ScanResult
}

// ScanHandler serves related-market scans.
type ScanHandler struct {
	scans    ScanService
	universe UniverseView
	opts     service.ScanOptions
	logger   *slog.Logger
}

// NewScanHandler creates a ScanHandler that runs every scan with opts.
func NewScanHandler(scans ScanService, universe UniverseView, opts service.ScanOptions, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		scans:    scans,
		universe: universe,
		opts:     opts,
		logger:   logger,
	}
}

// SessionHeader names the requester of a scan. A new scan cancels the one
// still running for the same session; requests without one never interfere.
const SessionHeader = "X-Scan-Session"

// Related scans the universe for markets related to ticker. The optional sort
// parameter names a service.Sort* field; order is "asc" or "desc" (default).
// GET /api/markets/{ticker}/related?sort=price_corr&order=desc&session=tab-1
func (h *ScanHandler) Related(w http.ResponseWriter, r *http.Request) {
	ticker := r.PathValue("ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing market ticker")
		return
	}
	if !h.universe.Loaded() {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNoUniverse.Error())
		return
	}

	opts := h.opts
	opts.Session = r.Header.Get(SessionHeader)
	if opts.Session == "" {
		opts.Session = r.URL.Query().Get("session")
	}

	res, err := h.scans.Run(r.Context(), h.universe.Markets(), ticker, opts)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: scan failed",
				slog.String("ticker", ticker),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, err.Error())
		return
	}

	if field := r.URL.Query().Get("sort"); field != "" {
		// The committed result is shared; sort a copy.
		sorted := *res
		sorted.Related = append([]domain.RelatedMarket(nil), res.Related...)
		desc := !strings.EqualFold(r.URL.Query().Get("order"), "asc")
		if err := service.SortRelated(sorted.Related, field, desc); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		res = &sorted
	}

	writeJSON(w, http.StatusOK, res)
}

// Latest returns the last committed scan.
// GET /api/scans/latest
func (h *ScanHandler) Latest(w http.ResponseWriter, r *http.Request) {
	res := h.scans.Latest()
	if res == nil {
		writeError(w, http.StatusNotFound, "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
