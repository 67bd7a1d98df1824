package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// SyncStateStore implements domain.SyncStateStore using PostgreSQL.
// Writes happen through TradeStore.InsertBatchWithSync so the cursor can
// never outrun its trade batch.
type SyncStateStore struct {
	pool *pgxpool.Pool
}

// NewSyncStateStore creates a new SyncStateStore backed by the given pool.
func NewSyncStateStore(pool *pgxpool.Pool) *SyncStateStore {
	return &SyncStateStore{pool: pool}
}

// Get retrieves the sync state for the given key.
func (s *SyncStateStore) Get(ctx context.Context, key string) (domain.SyncState, error) {
	var st domain.SyncState
	err := s.pool.QueryRow(ctx,
		`SELECT key, last_block, updated_at FROM sync_state WHERE key = $1`, key).
		Scan(&st.Key, &st.LastBlock, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SyncState{}, domain.ErrNotFound
		}
		return domain.SyncState{}, fmt.Errorf("postgres: get sync state %s: %w", key, err)
	}
	return st, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: bad stored decimal %q", domain.ErrStorageInvariant, s)
	}
	return d, nil
}
