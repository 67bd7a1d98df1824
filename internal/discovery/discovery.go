// Package discovery pulls event and market metadata from the Gamma API into
// local storage. Runs are idempotent: re-discovering a slug refreshes the
// stored rows in place.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/akarpov91/polyindexer/internal/domain"
	"github.com/akarpov91/polyindexer/internal/platform/gamma"
)

// MetadataClient is the Gamma API surface discovery needs.
type MetadataClient interface {
	GetMarketsForEvent(ctx context.Context, slug string) (gamma.APIEvent, []gamma.APIMarket, error)
}

// Discovery upserts metadata for one event and its markets.
type Discovery struct {
	client     MetadataClient
	events     domain.EventStore
	markets    domain.MarketStore
	cache      domain.MarketCache
	collateral string
	logger     *slog.Logger
}

// New creates a Discovery. cache may be nil.
func New(client MetadataClient, events domain.EventStore, markets domain.MarketStore,
	cache domain.MarketCache, collateral string, logger *slog.Logger) *Discovery {
	return &Discovery{
		client:     client,
		events:     events,
		markets:    markets,
		cache:      cache,
		collateral: collateral,
		logger:     logger.With(slog.String("component", "discovery")),
	}
}

// Discover fetches the event named by slug with its markets and upserts both.
// A market with unusable metadata is logged and skipped; its siblings are
// still stored. Returns domain.ErrNotFound when the event does not exist
// upstream.
func (d *Discovery) Discover(ctx context.Context, slug string) (domain.Event, []domain.Market, error) {
	apiEvent, apiMarkets, err := d.client.GetMarketsForEvent(ctx, slug)
	if err != nil {
		return domain.Event{}, nil, fmt.Errorf("discovery: fetch %s: %w", slug, err)
	}

	event := apiEvent.ToDomainEvent(slug)
	if err := d.events.Upsert(ctx, event); err != nil {
		return domain.Event{}, nil, fmt.Errorf("discovery: store event %s: %w", slug, err)
	}

	stored := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		market, err := apiMarkets[i].ToDomainMarket(event.Slug, event.NegRisk, d.collateral)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedMetadata) {
				d.logger.WarnContext(ctx, "skipping malformed market",
					slog.String("event", slug),
					slog.String("market", apiMarkets[i].Slug),
					slog.String("error", err.Error()))
				continue
			}
			return domain.Event{}, nil, fmt.Errorf("discovery: market %s: %w", apiMarkets[i].Slug, err)
		}
		if err := d.markets.Upsert(ctx, market); err != nil {
			return domain.Event{}, nil, fmt.Errorf("discovery: store market %s: %w", market.Slug, err)
		}
		if d.cache != nil {
			// Stale cached rows would serve old metadata until TTL expiry.
			if err := d.cache.Invalidate(ctx, market.Slug); err != nil {
				d.logger.WarnContext(ctx, "cache invalidation failed",
					slog.String("market", market.Slug),
					slog.String("error", err.Error()))
			}
		}
		stored = append(stored, market)
	}

	d.logger.InfoContext(ctx, "event discovered",
		slog.String("event", slug),
		slog.Int("markets", len(stored)),
		slog.Int("skipped", len(apiMarkets)-len(stored)))

	return event, stored, nil
}
