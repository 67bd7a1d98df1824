package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/akarpov91/polyindexer/internal/domain"
	"github.com/akarpov91/polyindexer/internal/notify"
)

// failureAlertThreshold is how many consecutive failed scans the watch loop
// tolerates before alerting the operator.
const failureAlertThreshold = 3

// ChainClient is the chain access surface the indexer needs.
type ChainClient interface {
	FilterFillLogs(ctx context.Context, addresses []common.Address, fromBlock, toBlock uint64) ([]types.Log, error)
	BlockOfTx(ctx context.Context, txHash common.Hash) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	HeadBlock(ctx context.Context) (uint64, error)
}

// Archiver receives each committed batch for cold storage.
type Archiver interface {
	ArchiveBatch(ctx context.Context, syncKey string, from, to uint64, trades []domain.Trade) error
}

// Notifier delivers operator alerts from the watch loop.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the scanning parameters.
type Config struct {
	// Exchanges are the contract addresses whose OrderFilled logs are
	// scanned.
	Exchanges []common.Address

	// SyncKey names the cursor row in sync_state.
	SyncKey string

	// GenesisBlock is where a scan starts when no cursor exists yet.
	GenesisBlock uint64

	// ChunkSize is the initial eth_getLogs block-range width. Halved and
	// retried when the RPC node rejects the range.
	ChunkSize uint64

	// LockTTL bounds how long a crashed scanner can hold the scan lock.
	LockTTL time.Duration
}

// Result summarizes one completed scan.
type Result struct {
	FromBlock   uint64
	ToBlock     uint64
	Fetched     int
	Inserted    int64
	DecodeSkips int
}

// Indexer scans OrderFilled logs from the exchange contracts into the trade
// store, advancing the sync cursor atomically with each committed batch.
type Indexer struct {
	chain    ChainClient
	trades   domain.TradeStore
	sync     domain.SyncStateStore
	locks    domain.LockManager
	archiver Archiver
	notifier Notifier
	logger   *slog.Logger
	cfg      Config
}

// New creates an Indexer. archiver and notifier may be nil.
func New(chain ChainClient, trades domain.TradeStore, sync domain.SyncStateStore,
	locks domain.LockManager, archiver Archiver, notifier Notifier,
	logger *slog.Logger, cfg Config) *Indexer {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 4000
	}
	if cfg.SyncKey == "" {
		cfg.SyncKey = domain.DefaultSyncKey
	}
	return &Indexer{
		chain:    chain,
		trades:   trades,
		sync:     sync,
		locks:    locks,
		archiver: archiver,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "indexer")),
		cfg:      cfg,
	}
}

// IndexRange scans blocks [from, to] for fills and commits them with the sync
// cursor in one storage transaction. A zero from resumes at the stored
// cursor plus one (or the genesis block on first run); a zero to scans up to
// the current head. filterTokens, when non-empty, keeps only fills of those
// token ids; the cursor still advances over the whole range.
//
// Replays are safe: previously stored fills are skipped by their
// (tx_hash, log_index) identity. Returns domain.ErrLockHeld when another
// scan holds this sync key.
func (ix *Indexer) IndexRange(ctx context.Context, from, to uint64, filterTokens []string) (Result, error) {
	unlock, err := ix.locks.Acquire(ctx, ix.cfg.SyncKey, ix.cfg.LockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("indexer: %w", err)
	}
	defer unlock()

	if to == 0 {
		head, err := ix.chain.HeadBlock(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("indexer: resolve head: %w", err)
		}
		to = head
	}
	if from == 0 {
		from, err = ix.resumeBlock(ctx)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{FromBlock: from, ToBlock: to}
	if from > to {
		ix.logger.InfoContext(ctx, "nothing to scan",
			slog.Uint64("from", from), slog.Uint64("to", to))
		return res, nil
	}

	logs, err := ix.collectLogs(ctx, from, to)
	if err != nil {
		return Result{}, err
	}
	res.Fetched = len(logs)

	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})

	wanted := tokenSet(filterTokens)
	timestamps := map[uint64]time.Time{}
	batch := make([]domain.Trade, 0, len(logs))
	for _, lg := range logs {
		trade, err := DecodeOrderFilled(lg)
		if err != nil {
			res.DecodeSkips++
			ix.logger.WarnContext(ctx, "skipping undecodable log",
				slog.String("tx_hash", lg.TxHash.Hex()),
				slog.Uint64("log_index", uint64(lg.Index)),
				slog.String("error", err.Error()))
			continue
		}
		if wanted != nil && !wanted[trade.TokenID] {
			continue
		}
		ts, ok := timestamps[lg.BlockNumber]
		if !ok {
			unix, err := ix.chain.BlockTimestamp(ctx, lg.BlockNumber)
			if err != nil {
				return Result{}, fmt.Errorf("indexer: block %d timestamp: %w", lg.BlockNumber, err)
			}
			ts = time.Unix(int64(unix), 0).UTC()
			timestamps[lg.BlockNumber] = ts
		}
		trade.Timestamp = ts
		batch = append(batch, trade)
	}

	inserted, err := ix.trades.InsertBatchWithSync(ctx, batch, ix.cfg.SyncKey, to)
	if err != nil {
		return Result{}, fmt.Errorf("indexer: commit [%d,%d]: %w", from, to, err)
	}
	res.Inserted = inserted

	ix.logger.InfoContext(ctx, "scan committed",
		slog.Uint64("from", from), slog.Uint64("to", to),
		slog.Int("fetched", res.Fetched),
		slog.Int64("inserted", inserted),
		slog.Int("decode_skips", res.DecodeSkips))

	// The batch is durable; an archive failure only costs the cold copy.
	if ix.archiver != nil && len(batch) > 0 {
		if err := ix.archiver.ArchiveBatch(ctx, ix.cfg.SyncKey, from, to, batch); err != nil {
			ix.logger.WarnContext(ctx, "archive failed",
				slog.Uint64("from", from), slog.Uint64("to", to),
				slog.String("error", err.Error()))
		}
	}

	return res, nil
}

// resumeBlock picks the first block of a resumed scan.
func (ix *Indexer) resumeBlock(ctx context.Context) (uint64, error) {
	st, err := ix.sync.Get(ctx, ix.cfg.SyncKey)
	if errors.Is(err, domain.ErrNotFound) {
		return ix.cfg.GenesisBlock, nil
	}
	if err != nil {
		return 0, fmt.Errorf("indexer: read sync state: %w", err)
	}
	return st.LastBlock + 1, nil
}

// collectLogs fetches fill logs over [from, to] in chunks, narrowing the
// chunk width whenever the RPC node rejects the range.
func (ix *Indexer) collectLogs(ctx context.Context, from, to uint64) ([]types.Log, error) {
	var logs []types.Log
	chunk := ix.cfg.ChunkSize
	start := from
	for start <= to {
		end := start + chunk - 1
		if end > to || end < start {
			end = to
		}
		got, err := ix.chain.FilterFillLogs(ctx, ix.cfg.Exchanges, start, end)
		if err != nil {
			if errors.Is(err, domain.ErrRangeTooLarge) && chunk > 1 {
				chunk /= 2
				ix.logger.DebugContext(ctx, "narrowing log chunk",
					slog.Uint64("chunk", chunk))
				continue
			}
			return nil, fmt.Errorf("indexer: get logs [%d,%d]: %w", start, end, err)
		}
		logs = append(logs, got...)
		start = end + 1
	}
	return logs, nil
}

// ResolveBlock returns the block number containing the given transaction.
func (ix *Indexer) ResolveBlock(ctx context.Context, txHash string) (uint64, error) {
	block, err := ix.chain.BlockOfTx(ctx, common.HexToHash(txHash))
	if err != nil {
		return 0, fmt.Errorf("indexer: resolve tx %s: %w", txHash, err)
	}
	return block, nil
}

// Watch scans from the stored cursor to the head on every tick until ctx is
// cancelled. A scan already in flight elsewhere is skipped quietly; after
// three consecutive failures the operator is notified once per failure
// streak.
func (ix *Indexer) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		res, err := ix.IndexRange(ctx, 0, 0, nil)
		switch {
		case err == nil:
			if failures >= failureAlertThreshold && ix.notifier != nil {
				_ = ix.notifier.Notify(ctx, notify.EventScanRecovered, "Trade scan recovered",
					fmt.Sprintf("scan succeeded after %d consecutive failures", failures))
			}
			failures = 0
			if res.Inserted > 0 {
				ix.logger.InfoContext(ctx, "watch tick",
					slog.Uint64("to", res.ToBlock),
					slog.Int64("inserted", res.Inserted))
			}
		case errors.Is(err, domain.ErrLockHeld):
			ix.logger.DebugContext(ctx, "scan already in flight")
		default:
			failures++
			ix.logger.ErrorContext(ctx, "scan failed",
				slog.Int("consecutive", failures),
				slog.String("error", err.Error()))
			if failures == failureAlertThreshold && ix.notifier != nil {
				_ = ix.notifier.Notify(ctx, notify.EventScanFailure, "Trade scan failing",
					fmt.Sprintf("%d consecutive scan failures, latest: %v", failures, err))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func tokenSet(tokens []string) map[string]bool {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
