package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/memory"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/postgres"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/sqlite"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Migrator is implemented by stores that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open opens the store selected by cfg.Driver. The schema is applied when
// cfg.AutoMigrate is set.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (ports.RevisionStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		s   ports.RevisionStore
		err error
	)

	switch cfg.Driver {
	case DriverMemory, "":
		s = memory.NewStore()
	case DriverSQLite:
		s, err = sqlite.Open(ctx, sqlite.Config{DSN: cfg.DSN, Logger: logger})
	case DriverPostgres:
		s, err = postgres.Open(ctx, postgres.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, s); err != nil {
			_ = s.Close()

			return nil, err
		}
	}

	logger.InfoContext(ctx, "revision store opened",
		slog.String("driver", driverName(cfg.Driver)),
		slog.Bool("auto_migrate", cfg.AutoMigrate),
	)

	return s, nil
}

// Migrate applies the schema of s. Stores without a schema are left alone.
func Migrate(ctx context.Context, s ports.RevisionStore) error {
	m, ok := s.(Migrator)
	if !ok {
		return nil
	}

	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating store: %w", err)
	}

	return nil
}

func driverName(driver string) string {
	if driver == "" {
		return DriverMemory
	}

	return driver
}
