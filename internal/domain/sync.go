package domain

import "time"

// SyncState records the scanning cursor for one indexing identity (typically
// one per exchange-contract set). LastBlock is the highest block fully scanned
// and committed; it only moves forward, and always in the same transaction as
// the trades decoded from the range it covers.
type SyncState struct {
	Key       string    `json:"key"`
	LastBlock uint64    `json:"last_block"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSyncKey is the scanning identity used when no explicit key is
// configured.
const DefaultSyncKey = "trade_sync"
