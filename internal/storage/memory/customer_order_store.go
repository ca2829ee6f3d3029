package memory

import (
	"context"
	"sort"
	"sync"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// CustomerOrderStore is an in-memory implementation of storage.CustomerOrderStore.
type CustomerOrderStore struct {
	mu   sync.RWMutex
	data map[int]*domain.CustomerOrderRecord // keyed by row_index
}

// NewCustomerOrderStore creates a new in-memory customer order store.
func NewCustomerOrderStore() *CustomerOrderStore {
	return &CustomerOrderStore{
		data: make(map[int]*domain.CustomerOrderRecord),
	}
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *CustomerOrderStore) InsertBulk(_ context.Context, records []*domain.CustomerOrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and check duplicates
	batchKeys := make(map[int]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.MasterID == "" || r.RowIndex < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RowIndex]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RowIndex]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RowIndex] = struct{}{}
	}

	// Second pass: insert copies
	for _, r := range records {
		recordCopy := *r
		s.data[r.RowIndex] = &recordCopy
	}

	return nil
}

// GetAll retrieves every record ordered by row_index ASC.
func (s *CustomerOrderStore) GetAll(_ context.Context) ([]*domain.CustomerOrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CustomerOrderRecord, 0, len(s.data))
	for _, r := range s.data {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RowIndex < result[j].RowIndex
	})

	return result, nil
}

// Count returns the number of stored records.
func (s *CustomerOrderStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

var _ storage.CustomerOrderStore = (*CustomerOrderStore)(nil)
