package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// TradeService defines what the trade handler needs from the service layer.
type TradeService interface {
	TradesOfMarket(ctx context.Context, slug string, limit int, cursor int64) (domain.TradePage, error)
	TradesOfToken(ctx context.Context, tokenID string, limit int, cursor int64) (domain.TradePage, error)
}

// TradeHandler serves cursor-paginated trade listings.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// ListMarketTrades returns a page of a market's trades oldest-first. Pass the
// returned next_cursor back to fetch the following page; a missing
// next_cursor means the listing is exhausted.
// GET /api/markets/{slug}/trades?limit=100&cursor=0
func (h *TradeHandler) ListMarketTrades(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	limit, cursor := parsePageOpts(r)

	page, err := h.trades.TradesOfMarket(r.Context(), slug, limit, cursor)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "market")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListTokenTrades returns a page of one outcome token's trades. A token whose
// market has not been discovered still serves its trades with outcome
// UNKNOWN.
// GET /api/tokens/{token_id}/trades?limit=100&cursor=0
func (h *TradeHandler) ListTokenTrades(w http.ResponseWriter, r *http.Request) {
	tokenID := r.PathValue("token_id")
	limit, cursor := parsePageOpts(r)

	page, err := h.trades.TradesOfToken(r.Context(), tokenID, limit, cursor)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "token")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
