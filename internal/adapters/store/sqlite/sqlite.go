// Package sqlite opens the revision store on SQLite through the pure Go modernc driver.
//
// The pool is limited to one connection, which serializes every transaction, so
// lineage locks need no statement of their own.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/sqlstore"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

const driverName = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Schema is the SQLite DDL of the revision table. Timestamps are fixed-width RFC 3339 text.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS quote_revisions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		root_id TEXT NOT NULL,
		parent_id TEXT,
		version_number INTEGER NOT NULL CHECK (version_number > 0),
		bundle_id TEXT,
		is_bundle_container BOOLEAN NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT 0,
		lifecycle_status TEXT NOT NULL,
		quote_no TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		valid_until TEXT,
		total_amount TEXT NOT NULL DEFAULT '',
		final_amount TEXT NOT NULL DEFAULT '',
		discount_amount TEXT NOT NULL DEFAULT '',
		items TEXT,
		customer_id TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (root_id, version_number),
		UNIQUE (tenant_id, quote_no)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS quote_revisions_one_active_idx
		ON quote_revisions (root_id) WHERE is_active = 1`,
	`CREATE INDEX IF NOT EXISTS quote_revisions_bundle_idx
		ON quote_revisions (bundle_id) WHERE bundle_id IS NOT NULL`,
}

// Config contains connection settings.
type Config struct {
	// DSN is a file path or MemoryDSN.
	DSN    string
	Logger *slog.Logger
}

// Open opens (and creates if needed) the database file.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = MemoryDSN
	}

	if dsn != MemoryDSN && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// One connection: transactions run one at a time, and an in-memory
	// database stays the same database for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("configuring sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, domain.NewUnavailableError("sqlite", err.Error())
	}

	return sqlstore.New(db, Dialect(), cfg.Logger), nil
}

// Dialect returns the SQLite dialect.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:           "sqlite",
		Schema:         Schema,
		TranslateError: TranslateError,
		TimeArg: func(t time.Time) any {
			return t.UTC().Format(timeLayout)
		},
	}
}

// TranslateError maps SQLite result codes to domain errors.
func TranslateError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	code := sqliteErr.Code()

	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return domain.NewConflictErrorWithDetails("quote revision", "unique constraint violated", sqliteErr.Error())
	case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed"):
		// Primary result code only, when extended codes are off.
		return domain.NewConflictErrorWithDetails("quote revision", "unique constraint violated", sqliteErr.Error())
	case code&0xff == sqlite3.SQLITE_BUSY, code&0xff == sqlite3.SQLITE_LOCKED:
		return domain.NewConflictErrorWithDetails("quote revision", "database is busy", sqliteErr.Error())
	default:
		return err
	}
}
