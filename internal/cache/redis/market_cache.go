package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akarpov91/polyindexer/internal/domain"
)

const marketTTL = 10 * time.Minute

// MarketCache implements domain.MarketCache using JSON-serialized markets
// plus a token-to-slug reverse index, so trade attribution can skip the
// database on repeated token lookups.
//
// Key schema:
//
//	market:{slug}          - JSON-encoded market
//	market:token:{tokenID} - string value of the market slug
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.rdb}
}

func marketKey(slug string) string     { return "market:" + slug }
func marketTokenKey(tok string) string { return "market:token:" + tok }

// Set stores a market with a 10-minute TTL and indexes both of its outcome
// token ids back to the market slug.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.Slug, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Set(ctx, marketKey(market.Slug), data, marketTTL)
	for _, tokenID := range []string{market.YesTokenID, market.NoTokenID} {
		if tokenID == "" {
			continue
		}
		pipe.Set(ctx, marketTokenKey(tokenID), market.Slug, marketTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.Slug, err)
	}
	return nil
}

// GetBySlug retrieves a market by slug.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) GetBySlug(ctx context.Context, slug string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", slug, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", slug, err)
	}
	return market, nil
}

// GetByToken looks up a market by one of its outcome token ids.
// It returns domain.ErrNotFound if the token mapping or market is missing.
func (mc *MarketCache) GetByToken(ctx context.Context, tokenID string) (domain.Market, error) {
	slug, err := mc.rdb.Get(ctx, marketTokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market by token %s: %w", tokenID, err)
	}

	return mc.GetBySlug(ctx, slug)
}

// Invalidate removes a market and its token index entries from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, slug string) error {
	market, err := mc.GetBySlug(ctx, slug)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("redis: invalidate market %s: %w", slug, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, marketKey(slug))
	if err == nil {
		for _, tokenID := range []string{market.YesTokenID, market.NoTokenID} {
			if tokenID == "" {
				continue
			}
			pipe.Del(ctx, marketTokenKey(tokenID))
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", slug, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
