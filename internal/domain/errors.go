package domain

import "errors"

var (
	// ErrValidation malformed record fields
	ErrValidation = errors.New("validation failed")
	// ErrOwnership caller does not own the target record
	ErrOwnership = errors.New("caller does not own this resource")
	// ErrNotFound record or stats row does not exist
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable I/O failure against the record store; callers may retry
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrBatchTooLarge sync batch above the configured maximum
	ErrBatchTooLarge = errors.New("sync batch too large")
)
