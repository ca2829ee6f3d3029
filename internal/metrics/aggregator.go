package metrics

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/ingestion"
)

// ErrNoRecords is returned when there are no records to aggregate.
var ErrNoRecords = errors.New("no customer order records to aggregate")

// customerGroup accumulates one customer's rows.
type customerGroup struct {
	firstRow      int
	lastOrderDate time.Time
	frequency     int64
	monetary      decimal.Decimal
}

// Aggregate reduces customer-order records to one CustomerMetrics per master_id.
// Frequency and Monetary are sums over the customer's rows, Recency is the number of
// whole days between reference and the latest last_order_date.
// Output is sorted by CustomerID ASC so downstream rank tie-breaks are deterministic
// regardless of input row order.
func Aggregate(records []*domain.CustomerOrderRecord, reference time.Time) ([]*domain.CustomerMetrics, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	groups := make(map[string]*customerGroup)
	for _, r := range records {
		g, ok := groups[r.MasterID]
		if !ok {
			g = &customerGroup{firstRow: r.RowIndex, monetary: decimal.Zero}
			groups[r.MasterID] = g
		}
		if r.LastOrderDate.After(g.lastOrderDate) {
			g.lastOrderDate = r.LastOrderDate
		}
		total, ok := addCount(r.OrderNumOnline, r.OrderNumOffline)
		if ok {
			total, ok = addCount(g.frequency, total)
		}
		if !ok {
			return nil, &domain.InputSchemaError{
				Row:    r.RowIndex + 1,
				Column: ingestion.ColOrderNumOnline,
				Reason: "order count total of customer " + r.MasterID + " overflows int64",
			}
		}
		g.frequency = total
		g.monetary = g.monetary.Add(r.TotalOrderValue())
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]*domain.CustomerMetrics, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		if g.lastOrderDate.After(reference) {
			return nil, &domain.InputSchemaError{
				Row:    g.firstRow + 1,
				Column: ingestion.ColLastOrderDate,
				Value:  g.lastOrderDate.Format(ingestion.DateLayout),
				Reason: "last order is after the reference date " + reference.Format(ingestion.DateLayout),
			}
		}
		if g.frequency < 1 {
			return nil, &domain.InputSchemaError{
				Row:    g.firstRow + 1,
				Column: ingestion.ColOrderNumOnline,
				Reason: "customer " + id + " has no orders",
			}
		}
		result = append(result, &domain.CustomerMetrics{
			CustomerID: id,
			Recency:    RecencyDays(reference, g.lastOrderDate),
			Frequency:  g.frequency,
			Monetary:   g.monetary,
		})
	}

	return result, nil
}

// addCount adds two non-negative order counts, reporting false on overflow
// or on a negative operand.
func addCount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// RecencyDays returns whole days elapsed from last to reference, floored.
// Callers guarantee last is not after reference.
func RecencyDays(reference, last time.Time) int {
	return int(reference.Sub(last) / (24 * time.Hour))
}
