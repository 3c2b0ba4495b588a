package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-sections/internal/runtimeconfig"
)

var (
	// ErrMemoryDriver is returned by Open for the memory driver, which needs no database.
	ErrMemoryDriver = errors.New("storage: memory driver has no database")
	// ErrDriverUnknown is returned for drivers the opener does not support.
	ErrDriverUnknown = errors.New("storage: unknown driver")
)

// Open connects to the configured database and wraps it with the matching
// bun dialect. sqlite3 uses mattn/go-sqlite3, sqlite uses the pure Go
// modernc driver and postgres uses lib/pq.
func Open(ctx context.Context, cfg runtimeconfig.StorageConfig) (*bun.DB, error) {
	driver := runtimeconfig.NormalizeDriver(cfg.Driver)
	if driver == runtimeconfig.DriverMemory {
		return nil, ErrMemoryDriver
	}
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}
	if driver != runtimeconfig.DriverPostgres && isMemoryDSN(cfg.DSN) {
		// every connection to a private memory database sees a new, empty one
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", driver, err)
	}
	return bun.NewDB(sqlDB, dialect), nil
}

func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case runtimeconfig.DriverSQLite3, runtimeconfig.DriverSQLite:
		return sqlitedialect.New(), nil
	case runtimeconfig.DriverPostgres:
		return pgdialect.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrDriverUnknown, driver)
	}
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}
