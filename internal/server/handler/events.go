package handler

import (
	"net/http"

	"github.com/alanyoungcy/kalshidash/internal/domain"
)

// EventHandler serves the loaded event universe.
type EventHandler struct {
	universe UniverseView
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(universe UniverseView) *EventHandler {
	return &EventHandler{universe: universe}
}

// listEventsResponse wraps the list endpoint output with metadata.
type listEventsResponse struct {
	Events []domain.Event `json:"events"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListEvents returns loaded events with pagination.
// GET /api/events?limit=50&offset=0
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if !h.universe.Loaded() {
		writeError(w, http.StatusServiceUnavailable, domain.ErrNoUniverse.Error())
		return
	}
	opts := parseListOpts(r)
	events := h.universe.Events()

	writeJSON(w, http.StatusOK, listEventsResponse{
		Events: page(events, opts),
		Total:  len(events),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
