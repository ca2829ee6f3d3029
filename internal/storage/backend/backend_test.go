package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/storage"
	"customer-rfm-lab/internal/storage/memory"
)

func TestInstrument(t *testing.T) {
	m := observability.NewMetrics("")
	store := Instrument(memory.NewCustomerOrderStore(), m, "memory")
	ctx := context.Background()

	records := []*domain.CustomerOrderRecord{
		{RowIndex: 0, MasterID: "c1"},
		{RowIndex: 1, MasterID: "c2"},
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	got, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Duplicate batch counts as an error
	assert.ErrorIs(t, store.InsertBulk(ctx, records), storage.ErrDuplicateKey)

	assert.Equal(t, 3, testutil.CollectAndCount(m.DBQueryDuration))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("memory", "insert_bulk")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("memory", "get_all")))
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "oracle", "oracle://x", false)
	assert.ErrorContains(t, err, "unknown database kind")

	_, err = Open(ctx, Postgres, "", false)
	assert.ErrorContains(t, err, "dsn is required")
}

func TestBackend_Close(t *testing.T) {
	closed := false
	b := &Backend{close: func() error { closed = true; return errors.New("already closed") }}
	assert.Error(t, b.Close())
	assert.True(t, closed)

	assert.NoError(t, (&Backend{}).Close())
}
