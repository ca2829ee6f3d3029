package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
)

var reference = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(row int, id string, last time.Time, online, offline int64, vOnline, vOffline string) *domain.CustomerOrderRecord {
	return &domain.CustomerOrderRecord{
		RowIndex:             row,
		MasterID:             id,
		LastOrderDate:        last,
		OrderNumOnline:       online,
		OrderNumOffline:      offline,
		CustomerValueOnline:  decimal.RequireFromString(vOnline),
		CustomerValueOffline: decimal.RequireFromString(vOffline),
	}
}

func TestAggregate_SingleRowPerCustomer(t *testing.T) {
	records := []*domain.CustomerOrderRecord{
		rec(0, "b", day(2021, 5, 30), 4, 1, "139.99", "799.38"),
		rec(1, "a", day(2021, 1, 1), 1, 1, "0.10", "0.20"),
	}

	got, err := Aggregate(records, reference)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(got))
	}

	// Sorted by customer id
	if got[0].CustomerID != "a" || got[1].CustomerID != "b" {
		t.Fatalf("unexpected order: %s, %s", got[0].CustomerID, got[1].CustomerID)
	}

	// Frequency = online + offline, exactly
	if got[1].Frequency != 5 {
		t.Errorf("Frequency = %d, want 5", got[1].Frequency)
	}
	// Monetary = online + offline, exactly (0.1 + 0.2 is not 0.30000000000000004 here)
	if !got[0].Monetary.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Monetary = %s, want 0.3", got[0].Monetary)
	}
	if !got[1].Monetary.Equal(decimal.RequireFromString("939.37")) {
		t.Errorf("Monetary = %s, want 939.37", got[1].Monetary)
	}

	if got[1].Recency != 2 {
		t.Errorf("Recency = %d, want 2", got[1].Recency)
	}
	if got[0].Recency != 151 {
		t.Errorf("Recency = %d, want 151", got[0].Recency)
	}
}

func TestAggregate_GroupsRepeatedCustomer(t *testing.T) {
	records := []*domain.CustomerOrderRecord{
		rec(0, "a", day(2021, 3, 1), 2, 0, "10", "0"),
		rec(1, "b", day(2021, 3, 1), 1, 0, "5", "0"),
		rec(2, "a", day(2021, 5, 1), 0, 3, "0", "7.5"),
	}

	got, err := Aggregate(records, reference)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("row count must equal distinct identifiers, got %d", len(got))
	}

	a := got[0]
	if a.Frequency != 5 {
		t.Errorf("Frequency = %d, want 5", a.Frequency)
	}
	if !a.Monetary.Equal(decimal.RequireFromString("17.5")) {
		t.Errorf("Monetary = %s, want 17.5", a.Monetary)
	}
	// Recency uses the latest last_order_date of the group
	if a.Recency != 31 {
		t.Errorf("Recency = %d, want 31", a.Recency)
	}
}

func TestAggregate_InputOrderIndependent(t *testing.T) {
	forward := []*domain.CustomerOrderRecord{
		rec(0, "x", day(2021, 2, 1), 1, 0, "1", "0"),
		rec(1, "y", day(2021, 3, 1), 2, 0, "2", "0"),
		rec(2, "z", day(2021, 4, 1), 3, 0, "3", "0"),
	}
	backward := []*domain.CustomerOrderRecord{forward[2], forward[1], forward[0]}

	a, err := Aggregate(forward, reference)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Aggregate(backward, reference)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].CustomerID != b[i].CustomerID || a[i].Recency != b[i].Recency || a[i].Frequency != b[i].Frequency {
			t.Errorf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAggregate_FloorsPartialDays(t *testing.T) {
	last := time.Date(2021, 5, 30, 6, 0, 0, 0, time.UTC)
	got, err := Aggregate([]*domain.CustomerOrderRecord{rec(0, "a", last, 1, 0, "1", "0")}, reference)
	if err != nil {
		t.Fatal(err)
	}
	// 1 day 18 hours -> 1
	if got[0].Recency != 1 {
		t.Errorf("Recency = %d, want 1", got[0].Recency)
	}
}

func TestAggregate_EndOfDayReference(t *testing.T) {
	endOfDay := time.Date(2021, 6, 1, 23, 59, 59, 999999999, time.UTC)
	records := []*domain.CustomerOrderRecord{
		rec(0, "a", time.Date(2021, 6, 1, 18, 30, 0, 0, time.UTC), 1, 0, "1", "0"),
		rec(1, "b", day(2021, 6, 1), 1, 0, "1", "0"),
		rec(2, "c", day(2021, 5, 25), 1, 0, "1", "0"),
	}

	got, err := Aggregate(records, endOfDay)
	if err != nil {
		t.Fatal(err)
	}
	// Same whole-day recency as a midnight reference for date-only rows.
	want := map[string]int{"a": 0, "b": 0, "c": 7}
	for _, m := range got {
		if m.Recency != want[m.CustomerID] {
			t.Errorf("%s: Recency = %d, want %d", m.CustomerID, m.Recency, want[m.CustomerID])
		}
	}
}

func TestAggregate_LastOrderAfterReference(t *testing.T) {
	records := []*domain.CustomerOrderRecord{rec(0, "a", day(2021, 6, 2), 1, 0, "1", "0")}

	_, err := Aggregate(records, reference)
	if !errors.Is(err, domain.ErrInputSchema) {
		t.Errorf("expected ErrInputSchema, got %v", err)
	}
}

func TestAggregate_CustomerWithoutOrders(t *testing.T) {
	records := []*domain.CustomerOrderRecord{rec(0, "a", day(2021, 5, 2), 0, 0, "0", "0")}

	_, err := Aggregate(records, reference)
	if !errors.Is(err, domain.ErrInputSchema) {
		t.Errorf("expected ErrInputSchema, got %v", err)
	}
}

func TestAggregate_FrequencyOverflow(t *testing.T) {
	tests := map[string][]*domain.CustomerOrderRecord{
		"single row": {
			rec(0, "a", day(2021, 5, 2), math.MaxInt64, 1, "1", "0"),
		},
		"across rows": {
			rec(0, "a", day(2021, 5, 2), math.MaxInt64-1, 0, "1", "0"),
			rec(1, "a", day(2021, 5, 3), 1, 1, "1", "0"),
		},
		"negative count": {
			rec(0, "a", day(2021, 5, 2), -5, 6, "1", "0"),
		},
	}
	for name, records := range tests {
		_, err := Aggregate(records, reference)
		if !errors.Is(err, domain.ErrInputSchema) {
			t.Errorf("%s: expected ErrInputSchema, got %v", name, err)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(nil, reference)
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
}
