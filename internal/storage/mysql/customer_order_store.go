package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// maxRowsPerStatement bounds a multi-row INSERT well below the placeholder limit.
const maxRowsPerStatement = 500

const customerOrderColumns = `row_index, master_id, order_channel, last_order_channel,
	first_order_date, last_order_date, last_order_date_online, last_order_date_offline,
	order_num_total_ever_online, order_num_total_ever_offline,
	customer_value_total_ever_offline, customer_value_total_ever_online,
	interested_in_categories_12`

// CustomerOrderStore implements storage.CustomerOrderStore using MySQL or MariaDB.
type CustomerOrderStore struct {
	db *sql.DB
}

// NewCustomerOrderStore creates a new CustomerOrderStore.
func NewCustomerOrderStore(db *sql.DB) *CustomerOrderStore {
	return &CustomerOrderStore{db: db}
}

// Compile-time interface check.
var _ storage.CustomerOrderStore = (*CustomerOrderStore)(nil)

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate row_index.
func (s *CustomerOrderStore) InsertBulk(ctx context.Context, records []*domain.CustomerOrderRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.MasterID == "" || r.RowIndex < 0 ||
			r.OrderNumOnline < 0 || r.OrderNumOffline < 0 ||
			r.CustomerValueOnline.IsNegative() || r.CustomerValueOffline.IsNegative() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(records); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(records))
		query, args := buildInsert(records[start:end])

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			switch {
			case isDuplicateKeyError(err):
				return storage.ErrDuplicateKey
			case isInvalidValueError(err):
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("insert customer orders in bulk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// buildInsert renders one multi-row INSERT for records.
func buildInsert(records []*domain.CustomerOrderRecord) (string, []any) {
	const rowPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	var b strings.Builder
	b.WriteString("INSERT INTO customer_orders (")
	b.WriteString(customerOrderColumns)
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(records)*13)
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(rowPlaceholders)
		args = append(args,
			r.RowIndex,
			r.MasterID,
			r.OrderChannel,
			r.LastOrderChannel,
			r.FirstOrderDate.Format(time.DateOnly),
			r.LastOrderDate.Format(time.DateOnly),
			r.LastOrderDateOnline.Format(time.DateOnly),
			r.LastOrderDateOffline.Format(time.DateOnly),
			r.OrderNumOnline,
			r.OrderNumOffline,
			r.CustomerValueOffline.String(),
			r.CustomerValueOnline.String(),
			r.InterestedInCategories,
		)
	}
	return b.String(), args
}

// GetAll retrieves every record ordered by row_index ASC.
func (s *CustomerOrderStore) GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error) {
	query := "SELECT " + customerOrderColumns + " FROM customer_orders ORDER BY row_index ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get customer orders: %w", err)
	}
	defer rows.Close()

	var records []*domain.CustomerOrderRecord
	for rows.Next() {
		var r domain.CustomerOrderRecord
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
			&r.CustomerValueOffline,
			&r.CustomerValueOnline,
			&r.InterestedInCategories,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer order row: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer order rows: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *CustomerOrderStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM customer_orders").Scan(&n); err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return n, nil
}
