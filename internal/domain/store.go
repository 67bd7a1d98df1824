package domain

import "context"

// TradePage holds one page of a cursor-paginated trade listing. NextCursor is
// zero on the final page; otherwise it is the Seq of the last returned trade
// and can be passed back verbatim to resume.
type TradePage struct {
	Trades     []Trade `json:"trades"`
	NextCursor int64   `json:"next_cursor,omitempty"`
}

// EventStore persists event metadata.
type EventStore interface {
	Upsert(ctx context.Context, ev Event) error
	GetBySlug(ctx context.Context, slug string) (Event, error)
}

// MarketStore persists market metadata.
type MarketStore interface {
	Upsert(ctx context.Context, m Market) error
	GetBySlug(ctx context.Context, slug string) (Market, error)
	GetByTokenID(ctx context.Context, tokenID string) (Market, error)
	ListByEvent(ctx context.Context, eventSlug string) ([]Market, error)
}

// TradeStore persists decoded fills. InsertBatchWithSync writes the batch and
// advances the sync cursor in one transaction: either every new trade row and
// the new last_block are visible together, or neither is. It returns the
// number of rows actually inserted (duplicates on (tx_hash, log_index) are
// skipped and not counted).
type TradeStore interface {
	InsertBatchWithSync(ctx context.Context, trades []Trade, syncKey string, lastBlock uint64) (int64, error)
	ListByTokens(ctx context.Context, tokenIDs []string, afterSeq int64, limit int) ([]Trade, error)
}

// SyncStateStore reads the scanning cursor. Writes go through
// TradeStore.InsertBatchWithSync so they stay atomic with the trade batch.
type SyncStateStore interface {
	Get(ctx context.Context, key string) (SyncState, error)
}
