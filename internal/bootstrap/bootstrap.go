// Package bootstrap assembles the revision engine from configuration.
// The HTTP service and the quotectl CLI share it so both run the same stack.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/archive"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/audit"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/awsconfig"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/flags"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/store"
	"github.com/jsamuelsen/quote-revisions/internal/app"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// Audit drivers.
const (
	AuditDriverLog      = "log"
	AuditDriverDynamoDB = "dynamodb"
	AuditDriverNone     = "none"
)

// Components is the assembled engine.
type Components struct {
	Store     ports.RevisionStore
	Revisions *app.RevisionService

	// Archive is nil unless archive.enabled is set.
	Archive *app.ArchiveService

	Health *ports.DefaultHealthRegistry
}

// Close releases the store.
func (c *Components) Close() error {
	return c.Store.Close()
}

// Options tunes Build.
type Options struct {
	// Metrics is optional.
	Metrics *telemetry.EngineMetrics

	// Store replaces the configured store, e.g. in tests.
	Store ports.RevisionStore
}

// Build opens the store and creates the services and their sinks.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	health := ports.NewHealthRegistry()

	revisionStore := opts.Store
	if revisionStore == nil {
		var err error

		revisionStore, err = store.Open(ctx, cfg.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
	}

	// Past this point the store must be closed on failure.
	components, err := build(ctx, cfg, logger, opts.Metrics, revisionStore, health)
	if err != nil {
		if closeErr := revisionStore.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}

		return nil, err
	}

	return components, nil
}

func build(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *telemetry.EngineMetrics,
	revisionStore ports.RevisionStore,
	health *ports.DefaultHealthRegistry,
) (*Components, error) {
	if err := health.Register(store.NewHealthChecker(storeName(cfg.Store.Driver), revisionStore)); err != nil {
		return nil, fmt.Errorf("registering store health check: %w", err)
	}

	publisher, err := newPublisher(ctx, cfg, logger, health)
	if err != nil {
		return nil, err
	}

	revisions := app.NewRevisionService(app.RevisionServiceConfig{
		Store:     revisionStore,
		Publisher: publisher,
		Flags:     flags.NewStatic(cfg.Features),
		Retry: app.RetryPolicy{
			MaxAttempts:     cfg.Engine.Retry.MaxAttempts,
			InitialInterval: cfg.Engine.Retry.InitialInterval,
			MaxInterval:     cfg.Engine.Retry.MaxInterval,
			Multiplier:      cfg.Engine.Retry.Multiplier,
			JitterFactor:    cfg.Engine.Retry.JitterFactor,
		},
		Metrics: metrics,
		Logger:  logger,
	})

	components := &Components{
		Store:     revisionStore,
		Revisions: revisions,
		Health:    health,
	}

	if cfg.Archive.Enabled {
		snapshotArchive, err := newArchive(ctx, cfg, logger, health)
		if err != nil {
			return nil, err
		}

		components.Archive = app.NewArchiveService(app.ArchiveServiceConfig{
			Revisions:   revisions,
			Archive:     snapshotArchive,
			Prefix:      cfg.Archive.Prefix,
			Concurrency: cfg.Engine.ExportConcurrency,
			Logger:      logger,
		})
	}

	return components, nil
}

// newPublisher returns the configured audit sink, or nil for "none".
func newPublisher(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	health *ports.DefaultHealthRegistry,
) (ports.EventPublisher, error) {
	switch cfg.Audit.Driver {
	case AuditDriverNone:
		return nil, nil //nolint:nilnil // no sink configured
	case AuditDriverLog, "":
		return audit.NewLogPublisher(logger), nil
	case AuditDriverDynamoDB:
		settings := awsSettings(cfg.AWS)

		awsCfg, err := awsconfig.Load(ctx, settings)
		if err != nil {
			return nil, err
		}

		publisher := audit.NewDynamoPublisher(audit.DynamoConfig{
			Client:  audit.NewDynamoClient(awsCfg, settings.BaseEndpoint()),
			Table:   cfg.Audit.Table,
			Timeout: cfg.Audit.Timeout,
			Breaker: audit.NewBreaker(audit.BreakerConfig{
				MaxFailures:   cfg.Audit.CircuitBreaker.MaxFailures,
				Timeout:       cfg.Audit.CircuitBreaker.Timeout,
				HalfOpenLimit: cfg.Audit.CircuitBreaker.HalfOpenLimit,
			}),
			Logger: logger,
		})

		if err := health.Register(ports.Optional(publisher)); err != nil {
			return nil, fmt.Errorf("registering audit health check: %w", err)
		}

		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown audit driver %q", cfg.Audit.Driver)
	}
}

func newArchive(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	health *ports.DefaultHealthRegistry,
) (*archive.S3Archive, error) {
	settings := awsSettings(cfg.AWS)

	awsCfg, err := awsconfig.Load(ctx, settings)
	if err != nil {
		return nil, err
	}

	s3Archive := archive.NewS3Archive(archive.S3Config{
		Client: archive.NewS3Client(awsCfg, settings.BaseEndpoint(), cfg.Archive.PathStyle),
		Bucket: cfg.Archive.Bucket,
		Logger: logger,
	})

	if err := health.Register(ports.Optional(s3Archive)); err != nil {
		return nil, fmt.Errorf("registering archive health check: %w", err)
	}

	return s3Archive, nil
}

func awsSettings(cfg config.AWSConfig) awsconfig.Settings {
	return awsconfig.Settings{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}
}

func storeName(driver string) string {
	if driver == "" {
		return store.DriverMemory
	}

	return driver
}
