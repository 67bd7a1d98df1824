package domain

import (
	"context"
	"time"
)

// MarketCache is a read-through cache in front of MarketStore, keyed by
// market slug with a secondary token-id index.
type MarketCache interface {
	Set(ctx context.Context, m Market) error
	GetBySlug(ctx context.Context, slug string) (Market, error)
	GetByToken(ctx context.Context, tokenID string) (Market, error)
	Invalidate(ctx context.Context, slug string) error
}

// LockManager provides per-key exclusive locks so at most one scan per sync
// key is in flight at a time. Acquire returns ErrLockHeld when the key is
// already locked; the returned unlock function is safe to call repeatedly.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
