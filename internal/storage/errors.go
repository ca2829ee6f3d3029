package storage

import "errors"

// Storage errors for customer order stores.
var (
	// ErrDuplicateKey is returned when a record with the same row_index is already stored.
	// Stores are append-only; reloading a dataset requires an empty table.
	ErrDuplicateKey = errors.New("duplicate key: row_index already loaded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
