package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open opens a MySQL/MariaDB pool. DSN mariadb:// or mysql:// is converted
// to the driver format; anything else is passed to the driver as is.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	driverDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", driverDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// toMySQLDSN converts a URL-style DSN into the driver format.
// Dates are read as time.Time in UTC.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	if cfg.User == "" || cfg.Addr == "" || cfg.DBName == "" {
		return "", errors.New("parse mysql dsn: user, host and database are required")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.InterpolateParams = true

	return cfg.FormatDSN(), nil
}

// MySQL error numbers
const (
	errDupEntry        = 1062 // ER_DUP_ENTRY
	errCheckConstraint = 3819 // ER_CHECK_CONSTRAINT_VIOLATED
	errOutOfRangeValue = 1264 // ER_WARN_DATA_OUT_OF_RANGE
)

func hasNumber(err error, numbers ...uint16) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	for _, n := range numbers {
		if myErr.Number == n {
			return true
		}
	}
	return false
}

// isDuplicateKeyError checks if error is a primary key violation.
func isDuplicateKeyError(err error) bool {
	return hasNumber(err, errDupEntry)
}

// isInvalidValueError checks if error is a rejected column value.
func isInvalidValueError(err error) bool {
	return hasNumber(err, errCheckConstraint, errOutOfRangeValue)
}
