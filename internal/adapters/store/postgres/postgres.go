// Package postgres opens the revision store on PostgreSQL through pgx.
//
// Lineage locks are transaction-scoped advisory locks, so they are released on
// commit or rollback without bookkeeping.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/sqlstore"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

const driverName = "pgx"

// PostgreSQL SQLSTATE codes mapped to domain errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// sqlOpen is replaced in tests.
var sqlOpen = sql.Open

// Schema is the PostgreSQL DDL of the revision table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS quote_revisions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		root_id TEXT NOT NULL,
		parent_id TEXT,
		version_number INTEGER NOT NULL CHECK (version_number > 0),
		bundle_id TEXT,
		is_bundle_container BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		lifecycle_status TEXT NOT NULL,
		quote_no TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		valid_until TIMESTAMPTZ,
		total_amount TEXT NOT NULL DEFAULT '',
		final_amount TEXT NOT NULL DEFAULT '',
		discount_amount TEXT NOT NULL DEFAULT '',
		items JSONB,
		customer_id TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT quote_revisions_root_version_key UNIQUE (root_id, version_number),
		CONSTRAINT quote_revisions_tenant_quote_no_key UNIQUE (tenant_id, quote_no)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS quote_revisions_one_active_idx
		ON quote_revisions (root_id) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS quote_revisions_bundle_idx
		ON quote_revisions (bundle_id) WHERE bundle_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS quote_revisions_tenant_idx ON quote_revisions (tenant_id)`,
}

// Config contains connection settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	db, err := sqlOpen(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, domain.NewUnavailableError("postgres", err.Error())
	}

	return sqlstore.New(db, Dialect(), cfg.Logger), nil
}

// Dialect returns the PostgreSQL dialect.
func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{
		Name:           "postgres",
		Rebind:         Rebind,
		Schema:         Schema,
		LockLineage:    lockLineage,
		TranslateError: TranslateError,
	}
}

// Rebind rewrites '?' placeholders as $1, $2, ...
func Rebind(query string) string {
	var b strings.Builder

	b.Grow(len(query) + 16)

	n := 0

	for _, r := range query {
		if r == '?' {
			n++

			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func lockLineage(ctx context.Context, tx *sql.Tx, key string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)

	return err
}

// TranslateError maps PostgreSQL errors to domain errors.
func TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if pgconn.Timeout(err) {
			return domain.NewUnavailableError("postgres", err.Error())
		}

		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return domain.NewConflictErrorWithDetails("quote revision", "unique constraint violated", pgErr.ConstraintName)
	case codeSerializationFailure, codeDeadlockDetected:
		return domain.NewConflictErrorWithDetails("quote revision", "concurrent update", pgErr.Message)
	default:
		return err
	}
}
