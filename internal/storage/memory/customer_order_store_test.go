package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

func record(row int, id string) *domain.CustomerOrderRecord {
	return &domain.CustomerOrderRecord{
		RowIndex:            row,
		MasterID:            id,
		OrderNumOnline:      1,
		CustomerValueOnline: decimal.RequireFromString("10.50"),
	}
}

func TestCustomerOrderStore_InsertBulkAndGetAll(t *testing.T) {
	store := NewCustomerOrderStore()
	ctx := context.Background()

	// Insert out of order; GetAll must return row_index order
	err := store.InsertBulk(ctx, []*domain.CustomerOrderRecord{
		record(2, "c"),
		record(0, "a"),
		record(1, "b"),
	})
	if err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].MasterID != want {
			t.Errorf("record %d: got %s, want %s", i, got[i].MasterID, want)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestCustomerOrderStore_DuplicateRowIndex(t *testing.T) {
	store := NewCustomerOrderStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.CustomerOrderRecord{record(0, "a")}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.CustomerOrderRecord{record(1, "b"), record(0, "a")})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Failed batch must not be partially applied
	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("Count = %d after failed batch, want 1", n)
	}
}

func TestCustomerOrderStore_IntraBatchDuplicate(t *testing.T) {
	store := NewCustomerOrderStore()

	err := store.InsertBulk(context.Background(), []*domain.CustomerOrderRecord{record(3, "a"), record(3, "b")})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCustomerOrderStore_InvalidInput(t *testing.T) {
	store := NewCustomerOrderStore()

	err := store.InsertBulk(context.Background(), []*domain.CustomerOrderRecord{record(0, "")})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCustomerOrderStore_ReturnsCopies(t *testing.T) {
	store := NewCustomerOrderStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.CustomerOrderRecord{record(0, "a")}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, _ := store.GetAll(ctx)
	got[0].MasterID = "mutated"

	again, _ := store.GetAll(ctx)
	if again[0].MasterID != "a" {
		t.Errorf("store was mutated through returned record: %s", again[0].MasterID)
	}
}
