package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// UniverseView is the read side of the in-memory market universe.
type UniverseView interface {
	UniverseStatus
	Events() []domain.Event
	Markets() []domain.Market
}

// StatusHandler serves a summary of the backend state for the dashboard.
type StatusHandler struct {
	universe  UniverseView
	scans     LatestScan
	startedAt time.Time
}

// LatestScan exposes the last committed scan.
type LatestScan interface {
	Latest() *domain.ScanResult
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(universe UniverseView, scans LatestScan) *StatusHandler {
	return &StatusHandler{universe: universe, scans: scans, startedAt: time.Now().UTC()}
}

// GetStatus responds with universe size, uptime and the latest scan id.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	markets := h.universe.Markets()
	open := 0
	for _, m := range markets {
		if m.IsOpen() {
			open++
		}
	}
	body := map[string]any{
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
		"universe_loaded": h.universe.Loaded(),
		"events":          len(h.universe.Events()),
		"markets":         len(markets),
		"open_markets":    open,
	}
	if latest := h.scans.Latest(); latest != nil {
		body["latest_scan_id"] = latest.ID
		body["latest_scan_target"] = latest.Target.Ticker
	}
	writeJSON(w, http.StatusOK, body)
}
