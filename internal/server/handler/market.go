package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// MarketService defines what the market handler needs from the service layer.
type MarketService interface {
	MarketBySlug(ctx context.Context, slug string) (domain.Market, error)
}

// MarketHandler serves market metadata endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// GetMarket returns one market by slug.
// GET /api/markets/{slug}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	market, err := h.markets.MarketBySlug(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "market")
		return
	}
	writeJSON(w, http.StatusOK, market)
}
