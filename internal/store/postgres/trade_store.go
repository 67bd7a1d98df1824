package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// InsertBatchWithSync stores a batch of trades and advances the sync cursor
// in a single transaction. Trades that already exist under their
// (tx_hash, log_index) identity are skipped without error, so replaying a
// block range is safe. The sync cursor only ever moves forward; a lastBlock
// behind the stored value leaves the cursor untouched.
//
// Returns the number of trades actually inserted.
func (s *TradeStore) InsertBatchWithSync(ctx context.Context, trades []domain.Trade, syncKey string, lastBlock uint64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin trade batch: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertQuery = `
		INSERT INTO trades (
			tx_hash, log_index, block_number, block_hash, "timestamp",
			token_id, maker, taker, side,
			price, size, fee,
			order_hash, maker_asset_id, taker_asset_id, exchange_address
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16
		)
		ON CONFLICT (tx_hash, log_index) DO NOTHING`

	var inserted int64
	for _, t := range trades {
		tag, err := tx.Exec(ctx, insertQuery,
			t.TxHash, t.LogIndex, t.BlockNumber, t.BlockHash, t.Timestamp,
			t.TokenID, t.Maker, t.Taker, string(t.Side),
			t.Price.String(), t.Size.String(), t.Fee.String(),
			t.OrderHash, t.MakerAssetID, t.TakerAssetID, t.ExchangeAddress,
		)
		if err != nil {
			return 0, fmt.Errorf("postgres: insert trade %s:%d: %w", t.TxHash, t.LogIndex, err)
		}
		inserted += tag.RowsAffected()
	}

	const syncQuery = `
		INSERT INTO sync_state (key, last_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			last_block = GREATEST(sync_state.last_block, EXCLUDED.last_block),
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, syncQuery, syncKey, lastBlock); err != nil {
		return 0, fmt.Errorf("postgres: advance sync %s: %w", syncKey, err)
	}

	// The batch and cursor must land together even if the caller is
	// shutting down, otherwise a restart could double-scan or skip blocks.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return 0, fmt.Errorf("postgres: commit trade batch: %w", err)
	}
	return inserted, nil
}

// ListByTokens returns trades for any of the given token ids with a
// sequence number strictly greater than afterSeq, oldest insertion first,
// at most limit rows. An empty token set yields an empty slice.
func (s *TradeStore) ListByTokens(ctx context.Context, tokenIDs []string, afterSeq int64, limit int) ([]domain.Trade, error) {
	if len(tokenIDs) == 0 {
		return []domain.Trade{}, nil
	}

	const query = `
		SELECT seq, tx_hash, log_index, block_number, block_hash, "timestamp",
			token_id, maker, taker, side,
			price, size, fee,
			order_hash, maker_asset_id, taker_asset_id, exchange_address
		FROM trades
		WHERE token_id = ANY($1) AND seq > $2
		ORDER BY seq ASC
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, tokenIDs, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades := []domain.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

func scanTrade(rows interface {
	Scan(dest ...any) error
}) (domain.Trade, error) {
	var t domain.Trade
	var side, price, size, fee string
	err := rows.Scan(
		&t.Seq, &t.TxHash, &t.LogIndex, &t.BlockNumber, &t.BlockHash, &t.Timestamp,
		&t.TokenID, &t.Maker, &t.Taker, &side,
		&price, &size, &fee,
		&t.OrderHash, &t.MakerAssetID, &t.TakerAssetID, &t.ExchangeAddress,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Side = domain.TradeSide(side)
	if t.Price, err = parseDecimal(price); err != nil {
		return domain.Trade{}, fmt.Errorf("price: %w", err)
	}
	if t.Size, err = parseDecimal(size); err != nil {
		return domain.Trade{}, fmt.Errorf("size: %w", err)
	}
	if t.Fee, err = parseDecimal(fee); err != nil {
		return domain.Trade{}, fmt.Errorf("fee: %w", err)
	}
	return t, nil
}
