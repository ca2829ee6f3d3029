// Package backend opens the database behind a customer-order store.
package backend

import (
	"context"
	"fmt"
	"time"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/observability"
	"customer-rfm-lab/internal/storage"
	chstore "customer-rfm-lab/internal/storage/clickhouse"
	"customer-rfm-lab/internal/storage/migrations"
	mysqlstore "customer-rfm-lab/internal/storage/mysql"
	pgstore "customer-rfm-lab/internal/storage/postgres"
)

// Database kinds.
const (
	Postgres   = "postgres"
	Clickhouse = "clickhouse"
	MySQL      = "mysql"
)

// Backend is an open customer_orders store and its connection.
type Backend struct {
	Kind  string
	Store storage.CustomerOrderStore
	close func() error
}

// Close releases the connection.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects to the database of the given kind. With migrate set the
// embedded migrations are applied first.
func Open(ctx context.Context, kind, dsn string, migrate bool) (*Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", kind)
	}

	switch kind {
	case Postgres:
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{
			Kind:  kind,
			Store: pgstore.NewCustomerOrderStore(pool),
			close: func() error { pool.Close(); return nil },
		}, nil

	case Clickhouse:
		var conn *chstore.Conn
		var err error
		if migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, dsn)
		} else {
			conn, err = chstore.NewConn(ctx, dsn)
		}
		if err != nil {
			return nil, err
		}
		return &Backend{Kind: kind, Store: chstore.NewCustomerOrderStore(conn), close: conn.Close}, nil

	case MySQL:
		db, err := mysqlstore.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := migrations.RunMySQLMigrations(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Backend{Kind: kind, Store: mysqlstore.NewCustomerOrderStore(db), close: db.Close}, nil
	}

	return nil, fmt.Errorf("unknown database kind %q", kind)
}

// Instrument wraps store so every call is recorded in the database metrics.
func Instrument(store storage.CustomerOrderStore, m *observability.Metrics, database string) storage.CustomerOrderStore {
	return &observedStore{next: store, metrics: m, database: database}
}

type observedStore struct {
	next     storage.CustomerOrderStore
	metrics  *observability.Metrics
	database string
}

var _ storage.CustomerOrderStore = (*observedStore)(nil)

func (s *observedStore) InsertBulk(ctx context.Context, records []*domain.CustomerOrderRecord) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, records)
	s.metrics.RecordDBQuery(s.database, "insert_bulk", time.Since(start), err)
	return err
}

func (s *observedStore) GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error) {
	start := time.Now()
	records, err := s.next.GetAll(ctx)
	s.metrics.RecordDBQuery(s.database, "get_all", time.Since(start), err)
	return records, err
}

func (s *observedStore) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.metrics.RecordDBQuery(s.database, "count", time.Since(start), err)
	return n, err
}
