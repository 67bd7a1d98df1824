package s3blob

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// Archiver writes committed trade batches to object storage as CSV, one
// object per scanned block range. The database remains the source of truth;
// archives exist for offline analysis and cold backup.
type Archiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewArchiver creates an Archiver writing under the given key prefix.
func NewArchiver(writer domain.BlobWriter, prefix string) *Archiver {
	if prefix == "" {
		prefix = "trades"
	}
	return &Archiver{writer: writer, prefix: prefix}
}

var csvHeader = []string{
	"tx_hash", "log_index", "block_number", "timestamp",
	"token_id", "maker", "taker", "side", "price", "size", "fee",
}

// ArchiveBatch uploads the trades scanned from blocks [from, to] under the
// given sync key. Empty batches are skipped.
func (a *Archiver) ArchiveBatch(ctx context.Context, syncKey string, from, to uint64, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("s3blob: write csv header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.TxHash,
			strconv.FormatUint(uint64(t.LogIndex), 10),
			strconv.FormatUint(t.BlockNumber, 10),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.TokenID,
			t.Maker,
			t.Taker,
			string(t.Side),
			t.Price.String(),
			t.Size.String(),
			t.Fee.String(),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("s3blob: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("s3blob: flush csv: %w", err)
	}

	path := fmt.Sprintf("%s/%s/%012d-%012d.csv", a.prefix, syncKey, from, to)
	if err := a.writer.Put(ctx, path, &buf, "text/csv"); err != nil {
		return fmt.Errorf("s3blob: archive batch %s: %w", path, err)
	}
	return nil
}
