// Command service runs the quote revision HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/jsamuelsen/quote-revisions/internal/adapters/http"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-revisions/internal/bootstrap"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/platform/telemetry"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "quote-revisions: %v\n", err)
		os.Exit(1)
	}
}

// run serves until ctx is canceled by a signal, then drains HTTP before the
// store closes. Deferred cleanups run in reverse: store, then telemetry.
func run(ctx context.Context) (err error) {
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := config.Load(profile)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting quote revision service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("profile", profile),
		slog.String("store", cfg.Store.Driver),
		slog.String("audit", cfg.Audit.Driver),
		slog.Bool("archive", cfg.Archive.Enabled),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		Insecure:     cfg.Telemetry.Insecure,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return err
	}

	defer func() {
		// ctx is already canceled here; flushing needs its own deadline.
		err = errors.Join(err, tel.Shutdown(context.WithoutCancel(ctx)))
	}()

	metrics, err := telemetry.NewEngineMetrics()
	if err != nil {
		return fmt.Errorf("engine metrics: %w", err)
	}

	engine, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{Metrics: metrics})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("closing store: %w", closeErr))
		}
	}()

	server := httpadapter.New(&cfg.Server, logger)

	httpadapter.Routes{
		Logger:         logger,
		Auth:           &cfg.Auth,
		ServiceName:    cfg.Telemetry.ServiceName,
		Health:         handlers.NewHealthHandler(engine.Health, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		Revisions:      handlers.NewRevisionHandler(engine.Revisions, engine.Archive),
		RequestTimeout: cfg.Server.RequestTimeout,
	}.Mount(server.Engine())

	serveErr, err := server.Start()
	if err != nil {
		return err
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown requested", slog.Duration("grace", cfg.Server.ShutdownTimeout))
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(drainCtx); err != nil {
		return err
	}

	logger.Info("quote revision service stopped")

	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
}
