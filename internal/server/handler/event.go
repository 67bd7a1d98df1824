package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// EventService defines what the event handler needs from the service layer.
type EventService interface {
	EventBySlug(ctx context.Context, slug string) (domain.Event, error)
	MarketsOfEvent(ctx context.Context, eventSlug string) ([]domain.Market, error)
}

// EventHandler serves event metadata endpoints.
type EventHandler struct {
	events EventService
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// GetEvent returns one event by slug.
// GET /api/events/{slug}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	event, err := h.events.EventBySlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// listMarketsResponse wraps the markets-of-event output.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
}

// ListMarkets returns the markets belonging to an event. An existing event
// with no markets yields an empty list, not a 404.
// GET /api/events/{slug}/markets
func (h *EventHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	markets, err := h.events.MarketsOfEvent(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "event")
		return
	}
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{Markets: markets})
}
