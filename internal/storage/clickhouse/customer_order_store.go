package clickhouse

import (
	"context"
	"fmt"
	"time"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// CustomerOrderStore implements storage.CustomerOrderStore using ClickHouse.
type CustomerOrderStore struct {
	conn *Conn
}

// NewCustomerOrderStore creates a new CustomerOrderStore.
func NewCustomerOrderStore(conn *Conn) *CustomerOrderStore {
	return &CustomerOrderStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CustomerOrderStore = (*CustomerOrderStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on any duplicate row_index.
// MergeTree does not enforce keys, so duplicates are checked before the batch is sent.
func (s *CustomerOrderStore) InsertBulk(ctx context.Context, records []*domain.CustomerOrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Validate and check for intra-batch duplicates
	seen := make(map[int]struct{}, len(records))
	lo, hi := records[0].RowIndex, records[0].RowIndex
	for _, r := range records {
		if r == nil || r.MasterID == "" || r.RowIndex < 0 ||
			r.OrderNumOnline < 0 || r.OrderNumOffline < 0 ||
			r.CustomerValueOnline.IsNegative() || r.CustomerValueOffline.IsNegative() {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[r.RowIndex]; exists {
			return storage.ErrDuplicateKey
		}
		seen[r.RowIndex] = struct{}{}
		lo, hi = min(lo, r.RowIndex), max(hi, r.RowIndex)
	}

	// Check for duplicates against existing DB rows
	existing, err := s.rowIndexesBetween(ctx, lo, hi)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, idx := range existing {
		if _, clash := seen[idx]; clash {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO customer_orders (
			row_index, master_id, order_channel, last_order_channel,
			first_order_date, last_order_date, last_order_date_online, last_order_date_offline,
			order_num_total_ever_online, order_num_total_ever_offline,
			customer_value_total_ever_offline, customer_value_total_ever_online,
			interested_in_categories_12
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			uint32(r.RowIndex), r.MasterID, r.OrderChannel, r.LastOrderChannel,
			r.FirstOrderDate, r.LastOrderDate, r.LastOrderDateOnline, r.LastOrderDateOffline,
			uint64(r.OrderNumOnline), uint64(r.OrderNumOffline),
			r.CustomerValueOffline, r.CustomerValueOnline,
			r.InterestedInCategories,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetAll retrieves every record ordered by row_index ASC.
func (s *CustomerOrderStore) GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error) {
	query := `
		SELECT row_index, master_id, order_channel, last_order_channel,
			first_order_date, last_order_date, last_order_date_online, last_order_date_offline,
			order_num_total_ever_online, order_num_total_ever_offline,
			customer_value_total_ever_offline, customer_value_total_ever_online,
			interested_in_categories_12
		FROM customer_orders
		ORDER BY row_index ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query customer orders: %w", err)
	}
	defer rows.Close()

	return scanCustomerOrders(rows)
}

// Count returns the number of stored records.
func (s *CustomerOrderStore) Count(ctx context.Context) (int, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM customer_orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count customer orders: %w", err)
	}
	return int(count), nil
}

// rowIndexesBetween returns stored row indexes within [lo, hi].
func (s *CustomerOrderStore) rowIndexesBetween(ctx context.Context, lo, hi int) ([]int, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT row_index FROM customer_orders
		WHERE row_index >= ? AND row_index <= ?
	`, uint32(lo), uint32(hi))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var idx uint32
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		out = append(out, int(idx))
	}
	return out, rows.Err()
}

// scanCustomerOrders scans multiple rows.
func scanCustomerOrders(rows chRows) ([]*domain.CustomerOrderRecord, error) {
	var records []*domain.CustomerOrderRecord

	for rows.Next() {
		var r domain.CustomerOrderRecord
		var rowIndex uint32
		var orderNumOnline, orderNumOffline uint64

		err := rows.Scan(
			&rowIndex, &r.MasterID, &r.OrderChannel, &r.LastOrderChannel,
			&r.FirstOrderDate, &r.LastOrderDate, &r.LastOrderDateOnline, &r.LastOrderDateOffline,
			&orderNumOnline, &orderNumOffline,
			&r.CustomerValueOffline, &r.CustomerValueOnline,
			&r.InterestedInCategories,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer order row: %w", err)
		}

		r.RowIndex = int(rowIndex)
		r.OrderNumOnline = int64(orderNumOnline)
		r.OrderNumOffline = int64(orderNumOffline)
		for _, d := range []*time.Time{
			&r.FirstOrderDate, &r.LastOrderDate, &r.LastOrderDateOnline, &r.LastOrderDateOffline,
		} {
			*d = d.UTC()
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer order rows: %w", err)
	}

	return records, nil
}
