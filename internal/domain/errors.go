package domain

import "errors"

var (
	// ErrNotFound means the requested entity is absent upstream or locally.
	ErrNotFound = errors.New("not found")

	// ErrMalformedMetadata means upstream metadata is missing a field the
	// market invariant requires (condition id or an outcome token id).
	ErrMalformedMetadata = errors.New("malformed metadata")

	// ErrDecode means a raw log did not match the expected event shape.
	ErrDecode = errors.New("log decode failed")

	// ErrSourceUnavailable is a transient upstream failure; the identical
	// call is safe to retry because no partial state was committed.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRangeTooLarge means the RPC refused the block range; the caller
	// must shrink the range and retry.
	ErrRangeTooLarge = errors.New("block range too large")

	// ErrStorageInvariant means a uniqueness or atomicity guarantee would be
	// broken. It is fatal and must never be swallowed.
	ErrStorageInvariant = errors.New("storage invariant violation")

	// ErrLockHeld means another scan already holds the sync-key lock.
	ErrLockHeld = errors.New("lock already held")
)
