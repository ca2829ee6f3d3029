package migrations

import (
	"context"
	"database/sql"
)

// RunMySQLMigrations applies all embedded MySQL files in lexical order,
// one statement per Exec. Migrations are expected to be idempotent.
func RunMySQLMigrations(ctx context.Context, db *sql.DB) error {
	return applyFiles(ctx, MySQLFS, "mysql", func(ctx context.Context, stmt string) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
}
