// Package service exposes the read API over stored events, markets, and
// trades.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akarpov91/polyindexer/internal/domain"
)

const (
	// DefaultPageLimit applies when a caller passes limit <= 0.
	DefaultPageLimit = 100
	// MaxPageLimit caps any requested page size.
	MaxPageLimit = 500
)

// QueryService serves metadata and trade lookups. Trades are attributed to
// markets at read time by joining token ids, so trades stored before their
// market was discovered still surface once it is.
type QueryService struct {
	events  domain.EventStore
	markets domain.MarketStore
	trades  domain.TradeStore
	cache   domain.MarketCache
	logger  *slog.Logger
}

// NewQueryService creates a QueryService. cache may be nil.
func NewQueryService(events domain.EventStore, markets domain.MarketStore,
	trades domain.TradeStore, cache domain.MarketCache, logger *slog.Logger) *QueryService {
	return &QueryService{
		events:  events,
		markets: markets,
		trades:  trades,
		cache:   cache,
		logger:  logger.With(slog.String("component", "query")),
	}
}

// EventBySlug returns one event.
func (s *QueryService) EventBySlug(ctx context.Context, slug string) (domain.Event, error) {
	ev, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Event{}, fmt.Errorf("query: event %s: %w", slug, err)
	}
	return ev, nil
}

// MarketsOfEvent lists an event's markets. An existing event with no markets
// yields an empty slice; a missing event yields ErrNotFound.
func (s *QueryService) MarketsOfEvent(ctx context.Context, eventSlug string) ([]domain.Market, error) {
	if _, err := s.events.GetBySlug(ctx, eventSlug); err != nil {
		return nil, fmt.Errorf("query: event %s: %w", eventSlug, err)
	}
	markets, err := s.markets.ListByEvent(ctx, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("query: markets of %s: %w", eventSlug, err)
	}
	return markets, nil
}

// MarketBySlug returns one market, preferring the cache.
func (s *QueryService) MarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.GetBySlug(ctx, slug); err == nil {
			return m, nil
		}
	}
	m, err := s.markets.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Market{}, fmt.Errorf("query: market %s: %w", slug, err)
	}
	s.cacheMarket(ctx, m)
	return m, nil
}

// TradesOfMarket pages through a market's trades across both of its outcome
// tokens, oldest first. The cursor is the seq of the last trade on the
// previous page; zero starts from the beginning. A cursor past the end
// yields an empty final page.
func (s *QueryService) TradesOfMarket(ctx context.Context, slug string, limit int, cursor int64) (domain.TradePage, error) {
	market, err := s.MarketBySlug(ctx, slug)
	if err != nil {
		return domain.TradePage{}, err
	}
	return s.tradePage(ctx, []string{market.YesTokenID, market.NoTokenID}, limit, cursor)
}

// TradesOfToken pages through one outcome token's trades. The token does not
// need a discovered market; trades of unknown tokens carry outcome UNKNOWN.
func (s *QueryService) TradesOfToken(ctx context.Context, tokenID string, limit int, cursor int64) (domain.TradePage, error) {
	return s.tradePage(ctx, []string{tokenID}, limit, cursor)
}

func (s *QueryService) tradePage(ctx context.Context, tokenIDs []string, limit int, cursor int64) (domain.TradePage, error) {
	limit = clampLimit(limit)

	trades, err := s.trades.ListByTokens(ctx, tokenIDs, cursor, limit)
	if err != nil {
		return domain.TradePage{}, fmt.Errorf("query: list trades: %w", err)
	}

	// One market covers both tokens of a binary pair, so a tiny memo is
	// enough to attribute the whole page.
	outcomes := map[string]func(string) string{}
	for i := range trades {
		attr, ok := outcomes[trades[i].TokenID]
		if !ok {
			attr = s.outcomeAttributor(ctx, trades[i].TokenID)
			outcomes[trades[i].TokenID] = attr
		}
		trades[i].Outcome = attr(trades[i].TokenID)
	}

	page := domain.TradePage{Trades: trades}
	if len(trades) == limit {
		page.NextCursor = trades[len(trades)-1].Seq
	}
	return page, nil
}

// outcomeAttributor resolves a token id to its market's outcome labeler, or
// a constant UNKNOWN labeler when no market owns the token yet.
func (s *QueryService) outcomeAttributor(ctx context.Context, tokenID string) func(string) string {
	if s.cache != nil {
		if m, err := s.cache.GetByToken(ctx, tokenID); err == nil {
			return m.OutcomeForToken
		}
	}
	m, err := s.markets.GetByTokenID(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "outcome lookup failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()))
		}
		return func(string) string { return "UNKNOWN" }
	}
	s.cacheMarket(ctx, m)
	return m.OutcomeForToken
}

func (s *QueryService) cacheMarket(ctx context.Context, m domain.Market) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market", m.Slug),
			slog.String("error", err.Error()))
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageLimit
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}
