package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/memory"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

func TestOpen_Memory(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{Driver: DriverMemory, AutoMigrate: true}, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	assert.IsType(t, &memory.Store{}, s)
	require.NoError(t, s.Ping(context.Background()))
}

func TestOpen_SQLiteAutoMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "revisions.db")

	s, err := Open(context.Background(), config.StoreConfig{Driver: DriverSQLite, DSN: dsn, AutoMigrate: true}, nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	err = s.WithinTx(context.Background(), func(ctx context.Context, tx ports.RevisionTx) error {
		n, err := tx.MaxVersion(ctx, "missing")
		assert.Zero(t, n)

		return err
	})
	require.NoError(t, err, "the schema exists after auto migration")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "oracle"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

type failingMigrator struct {
	ports.RevisionStore
}

func (failingMigrator) Migrate(context.Context) error { return errors.New("ddl rejected") }

func TestMigrate(t *testing.T) {
	require.NoError(t, Migrate(context.Background(), memory.NewStore()), "stores without a schema are skipped")

	err := Migrate(context.Background(), failingMigrator{RevisionStore: memory.NewStore()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ddl rejected")
}

func TestHealthChecker(t *testing.T) {
	s := memory.NewStore()
	checker := NewHealthChecker(DriverMemory, s)

	assert.Equal(t, "store:memory", checker.Name())
	require.NoError(t, checker.Check(context.Background()))

	require.NoError(t, s.Close())
	assert.True(t, domain.IsUnavailable(checker.Check(context.Background())))
}
