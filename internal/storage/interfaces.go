package storage

import (
	"context"

	"customer-rfm-lab/internal/domain"
)

// CustomerOrderSource provides read access to the customer-order dataset.
type CustomerOrderSource interface {
	// GetAll retrieves every record ordered by RowIndex ASC.
	GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error)
}

// CustomerOrderStore provides access to customer_orders storage.
// Used by ingestion to load a dataset; the segmentation pipeline only reads.
type CustomerOrderStore interface {
	CustomerOrderSource

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate row_index.
	InsertBulk(ctx context.Context, records []*domain.CustomerOrderRecord) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}
