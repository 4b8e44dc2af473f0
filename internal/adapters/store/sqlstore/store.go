// Package sqlstore implements the revision store on database/sql.
// Engine specifics (placeholders, DDL, lineage locking, error codes) come from a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.RevisionStore = (*Store)(nil)
	_ ports.RevisionTx    = (*tx)(nil)
)

// Dialect adapts the store to one database engine.
type Dialect struct {
	// Name identifies the engine in logs and errors.
	Name string

	// Rebind rewrites '?' placeholders for the engine. Nil keeps them.
	Rebind func(query string) string

	// Schema lists idempotent DDL statements.
	Schema []string

	// LockLineage takes a transaction-scoped lock on key. Nil means the engine
	// already serializes writers.
	LockLineage func(ctx context.Context, tx *sql.Tx, key string) error

	// TranslateError maps driver errors to domain errors. It returns err
	// unchanged when it has no mapping.
	TranslateError func(err error) error

	// TimeArg converts a timestamp to a bind argument. Nil passes time.Time through.
	TimeArg func(t time.Time) any
}

// Store is a revision store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps db. The caller keeps ownership of driver registration and pool settings.
func New(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		db:      db,
		dialect: dialect,
		logger:  logger.With(slog.String("component", "revision_store"), slog.String("dialect", dialect.Name)),
	}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the dialect's schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying %s schema: %w", s.dialect.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "schema applied", slog.Int("statements", len(s.dialect.Schema)))

	return nil
}

// Ping implements ports.RevisionStore.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewUnavailableError(s.dialect.Name, err.Error())
	}

	return nil
}

// Close implements ports.RevisionStore.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.dialect.Name, err)
	}

	return nil
}

// WithinTx implements ports.RevisionStore.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.RevisionTx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.translate(fmt.Errorf("beginning transaction: %w", err))
	}

	committed := false

	defer func() {
		if committed {
			return
		}

		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.FromContextOr(ctx, s.logger).WarnContext(ctx, "rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err := fn(ctx, &tx{store: s, tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return s.translate(fmt.Errorf("committing transaction: %w", err))
	}

	committed = true

	return nil
}

func (s *Store) translate(err error) error {
	if err == nil || s.dialect.TranslateError == nil {
		return err
	}

	return s.dialect.TranslateError(err)
}

func (s *Store) rebind(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}

	return s.dialect.Rebind(query)
}

func (s *Store) timeArg(t time.Time) any {
	if s.dialect.TimeArg == nil {
		return t.UTC()
	}

	return s.dialect.TimeArg(t)
}

const revisionColumns = `id, tenant_id, root_id, parent_id, version_number, bundle_id,
	is_bundle_container, is_active, lifecycle_status, quote_no, title, notes, valid_until,
	total_amount, final_amount, discount_amount, items, customer_id, created_by, created_at, updated_at`

type tx struct {
	store *Store
	tx    *sql.Tx
}

func (t *tx) GetRevision(ctx context.Context, id string) (*domain.QuoteRevision, error) {
	row := t.tx.QueryRowContext(ctx, t.store.rebind(`SELECT `+revisionColumns+` FROM quote_revisions WHERE id = ?`), id)

	rev, err := scanRevision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("quote revision", id)
		}

		return nil, t.store.translate(fmt.Errorf("selecting revision %s: %w", id, err))
	}

	return rev, nil
}

func (t *tx) LockLineage(ctx context.Context, tenantID, rootID string) error {
	if t.store.dialect.LockLineage == nil {
		return nil
	}

	if err := t.store.dialect.LockLineage(ctx, t.tx, tenantID+"/"+rootID); err != nil {
		return t.store.translate(fmt.Errorf("locking lineage %s: %w", rootID, err))
	}

	return nil
}

func (t *tx) MaxVersion(ctx context.Context, rootID string) (int, error) {
	var maxVersion int

	err := t.tx.QueryRowContext(ctx,
		t.store.rebind(`SELECT COALESCE(MAX(version_number), 0) FROM quote_revisions WHERE root_id = ?`),
		rootID,
	).Scan(&maxVersion)
	if err != nil {
		return 0, t.store.translate(fmt.Errorf("selecting max version of %s: %w", rootID, err))
	}

	return maxVersion, nil
}

func (t *tx) ListLineage(ctx context.Context, rootID string) (domain.Lineage, error) {
	revisions, err := t.query(ctx,
		`SELECT `+revisionColumns+` FROM quote_revisions WHERE root_id = ? ORDER BY version_number`,
		rootID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing lineage %s: %w", rootID, err)
	}

	return domain.Lineage(revisions), nil
}

func (t *tx) ListBundleMembers(ctx context.Context, bundleID string) ([]*domain.QuoteRevision, error) {
	revisions, err := t.query(ctx,
		`SELECT `+revisionColumns+` FROM quote_revisions WHERE bundle_id = ? ORDER BY created_at, id`,
		bundleID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bundle %s: %w", bundleID, err)
	}

	return revisions, nil
}

func (t *tx) InsertRevision(ctx context.Context, rev *domain.QuoteRevision) error {
	var validUntil any
	if rev.ValidUntil != nil {
		validUntil = t.store.timeArg(*rev.ValidUntil)
	}

	var items any
	if len(rev.Items) > 0 {
		items = string(rev.Items)
	}

	_, err := t.tx.ExecContext(ctx, t.store.rebind(`INSERT INTO quote_revisions (`+revisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rev.ID, rev.TenantID, rev.RootID, nullString(rev.ParentID), rev.VersionNumber, nullString(rev.BundleID),
		rev.IsBundleContainer, rev.IsActive, string(rev.LifecycleStatus), rev.QuoteNo, rev.Title, rev.Notes, validUntil,
		string(rev.TotalAmount), string(rev.FinalAmount), string(rev.DiscountAmount), items,
		rev.CustomerID, rev.CreatedBy, t.store.timeArg(rev.CreatedAt), t.store.timeArg(rev.UpdatedAt),
	)
	if err != nil {
		return t.store.translate(fmt.Errorf("inserting revision %s: %w", rev.ID, err))
	}

	return nil
}

func (t *tx) UpdateState(ctx context.Context, id string, isActive bool, status domain.LifecycleStatus, updatedAt time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		t.store.rebind(`UPDATE quote_revisions SET is_active = ?, lifecycle_status = ?, updated_at = ? WHERE id = ?`),
		isActive, string(status), t.store.timeArg(updatedAt), id,
	)
	if err != nil {
		return t.store.translate(fmt.Errorf("updating revision %s: %w", id, err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if affected == 0 {
		return domain.NewNotFoundError("quote revision", id)
	}

	return nil
}

func (t *tx) query(ctx context.Context, query string, args ...any) ([]*domain.QuoteRevision, error) {
	rows, err := t.tx.QueryContext(ctx, t.store.rebind(query), args...)
	if err != nil {
		return nil, t.store.translate(err)
	}
	defer func() { _ = rows.Close() }()

	revisions := make([]*domain.QuoteRevision, 0)

	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}

		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, t.store.translate(err)
	}

	return revisions, nil
}
