package handler

import (
	"net/http"
	"time"
)

// UniverseStatus reports whether the market universe has been loaded.
type UniverseStatus interface {
	Loaded() bool
	LoadedAt() time.Time
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	universe UniverseStatus
}

// NewHealthHandler creates a HealthHandler. universe may be nil.
func NewHealthHandler(universe UniverseStatus) *HealthHandler {
	return &HealthHandler{universe: universe}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// The server is alive before the universe loads, so this is always 200.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.universe != nil {
		body["universe_loaded"] = h.universe.Loaded()
		if at := h.universe.LoadedAt(); !at.IsZero() {
			body["universe_loaded_at"] = at.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}
