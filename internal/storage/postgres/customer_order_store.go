package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// CustomerOrderStore implements storage.CustomerOrderStore using PostgreSQL.
type CustomerOrderStore struct {
	pool *Pool
}

// NewCustomerOrderStore creates a new CustomerOrderStore.
func NewCustomerOrderStore(pool *Pool) *CustomerOrderStore {
	return &CustomerOrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CustomerOrderStore = (*CustomerOrderStore)(nil)

const insertCustomerOrder = `
	INSERT INTO customer_orders (
		row_index, master_id, order_channel, last_order_channel,
		first_order_date, last_order_date, last_order_date_online, last_order_date_offline,
		order_num_total_ever_online, order_num_total_ever_offline,
		customer_value_total_ever_offline, customer_value_total_ever_online,
		interested_in_categories_12
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::text::numeric, $12::text::numeric, $13)
`

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate row_index.
func (s *CustomerOrderStore) InsertBulk(ctx context.Context, records []*domain.CustomerOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		if r == nil || r.MasterID == "" || r.RowIndex < 0 {
			return storage.ErrInvalidInput
		}
		batch.Queue(insertCustomerOrder,
			r.RowIndex,
			r.MasterID,
			r.OrderChannel,
			r.LastOrderChannel,
			r.FirstOrderDate,
			r.LastOrderDate,
			r.LastOrderDateOnline,
			r.LastOrderDateOffline,
			r.OrderNumOnline,
			r.OrderNumOffline,
			r.CustomerValueOffline.String(),
			r.CustomerValueOnline.String(),
			r.InterestedInCategories,
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			switch {
			case isDuplicateKeyError(err):
				return storage.ErrDuplicateKey
			case isCheckViolation(err):
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert customer order in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAll retrieves every record ordered by row_index ASC.
func (s *CustomerOrderStore) GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error) {
	query := `
		SELECT row_index, master_id, order_channel, last_order_channel,
			first_order_date, last_order_date, last_order_date_online, last_order_date_offline,
			order_num_total_ever_online, order_num_total_ever_offline,
			customer_value_total_ever_offline::text, customer_value_total_ever_online::text,
			interested_in_categories_12
		FROM customer_orders
		ORDER BY row_index ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get customer orders: %w", err)
	}
	defer rows.Close()

	return scanCustomerOrders(rows)
}

// Count returns the number of stored records.
func (s *CustomerOrderStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM customer_orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return n, nil
}

// scanCustomerOrders scans multiple rows into a slice of CustomerOrderRecord.
func scanCustomerOrders(rows pgx.Rows) ([]*domain.CustomerOrderRecord, error) {
	var records []*domain.CustomerOrderRecord

	for rows.Next() {
		var r domain.CustomerOrderRecord
		var valueOffline, valueOnline string

		err := rows.Scan(
			&r.RowIndex,
			&r.MasterID,
			&r.OrderChannel,
			&r.LastOrderChannel,
			&r.FirstOrderDate,
			&r.LastOrderDate,
			&r.LastOrderDateOnline,
			&r.LastOrderDateOffline,
			&r.OrderNumOnline,
			&r.OrderNumOffline,
			&valueOffline,
			&valueOnline,
			&r.InterestedInCategories,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer order row: %w", err)
		}

		if r.CustomerValueOffline, err = decimal.NewFromString(valueOffline); err != nil {
			return nil, fmt.Errorf("parse customer_value_total_ever_offline of row %d: %w", r.RowIndex, err)
		}
		if r.CustomerValueOnline, err = decimal.NewFromString(valueOnline); err != nil {
			return nil, fmt.Errorf("parse customer_value_total_ever_online of row %d: %w", r.RowIndex, err)
		}
		normalizeDates(&r)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer order rows: %w", err)
	}

	return records, nil
}

// normalizeDates pins DATE columns to UTC midnight.
func normalizeDates(r *domain.CustomerOrderRecord) {
	for _, d := range []*time.Time{
		&r.FirstOrderDate, &r.LastOrderDate, &r.LastOrderDateOnline, &r.LastOrderDateOffline,
	} {
		y, m, day := d.Date()
		*d = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
}
