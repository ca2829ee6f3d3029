package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerOrderRecord is one row of the customer-order dataset.
// Corresponds to the customer_orders table and the input CSV.
type CustomerOrderRecord struct {
	RowIndex int // 0-based position in the source, preserves input order

	MasterID         string // customer identifier
	OrderChannel     string // channel of the first order
	LastOrderChannel string // channel of the last order

	FirstOrderDate       time.Time
	LastOrderDate        time.Time
	LastOrderDateOnline  time.Time
	LastOrderDateOffline time.Time

	OrderNumOnline       int64           // order_num_total_ever_online
	OrderNumOffline      int64           // order_num_total_ever_offline
	CustomerValueOnline  decimal.Decimal // customer_value_total_ever_online
	CustomerValueOffline decimal.Decimal // customer_value_total_ever_offline

	InterestedInCategories string // interested_in_categories_12, free text
}

// TotalOrderNum returns online + offline order count.
func (r *CustomerOrderRecord) TotalOrderNum() int64 {
	return r.OrderNumOnline + r.OrderNumOffline
}

// TotalOrderValue returns online + offline spend.
func (r *CustomerOrderRecord) TotalOrderValue() decimal.Decimal {
	return r.CustomerValueOnline.Add(r.CustomerValueOffline)
}

// CustomerMetrics holds the three RFM metrics of one customer.
type CustomerMetrics struct {
	CustomerID string
	Recency    int             // whole days since the last order, >= 0
	Frequency  int64           // total order count, >= 1
	Monetary   decimal.Decimal // total spend, >= 0
}

// ScoredCustomer is CustomerMetrics plus quintile scores.
type ScoredCustomer struct {
	CustomerMetrics

	R int // 1..5, 5 = most recent
	F int // 1..5, 5 = most frequent
	M int // 1..5, 5 = highest spend

	RFMScore string // digits R, F, M (e.g. "345")
	RFScore  string // digits R, F (e.g. "34")
}

// SegmentedCustomer is a ScoredCustomer with its behavioral segment.
type SegmentedCustomer struct {
	ScoredCustomer
	Segment Segment
}
