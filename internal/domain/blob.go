package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage. The indexer uses it to archive
// a CSV copy of each committed scan batch.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
