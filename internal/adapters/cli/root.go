// Package cli implements quotectl, the operator command line for the revision engine.
//
// Commands run the same services as the HTTP API against the configured store,
// so a lineage begun here is visible to the service and the other way round.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-revisions/internal/bootstrap"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
)

// Environment variables read as flag defaults.
const (
	envTenant = "QUOTECTL_TENANT"
	envActor  = "QUOTECTL_ACTOR"
)

// BuildFunc assembles the engine for one command invocation.
type BuildFunc func(ctx context.Context, profile string, logger *slog.Logger) (*bootstrap.Components, error)

// Options configures the root command.
type Options struct {
	Version string
	Out     io.Writer
	Err     io.Writer

	// Build defaults to loading the profile's config and calling bootstrap.Build.
	Build BuildFunc
}

// session is the state shared by the subcommands of one invocation.
type session struct {
	opts Options

	profile  string
	tenantID string
	actor    string
	asJSON   bool
	verbose  bool

	engine *bootstrap.Components
}

// Execute runs quotectl with args and releases the store afterwards.
func Execute(ctx context.Context, args []string, opts Options) (err error) {
	root, s := newRootCmd(opts)
	root.SetArgs(args)

	defer func() {
		if closeErr := s.close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	return root.ExecuteContext(ctx)
}

func newRootCmd(opts Options) (*cobra.Command, *session) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	if opts.Build == nil {
		opts.Build = buildFromConfig
	}

	s := &session{opts: opts}

	root := &cobra.Command{
		Use:     "quotectl",
		Short:   "Manage quote lineages, versions and bundles",
		Version: opts.Version,
		Long: `quotectl drives the quote revision engine directly against its store.

Every command is scoped to one tenant, taken from --tenant or QUOTECTL_TENANT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	flags := root.PersistentFlags()
	flags.StringVar(&s.profile, "profile", envOr("APP_ENVIRONMENT", "local"), "config profile (configs/<profile>.yaml)")
	flags.StringVar(&s.tenantID, "tenant", os.Getenv(envTenant), "tenant the command acts for")
	flags.StringVar(&s.actor, "actor", envOr(envActor, envOr("USER", "quotectl")), "user recorded as the author of changes")
	flags.BoolVar(&s.asJSON, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(
		s.migrateCmd(),
		s.lineageCmd(),
		s.versionCmd(),
		s.bundleCmd(),
		s.archiveCmd(),
	)

	return root, s
}

// open builds the engine on first use.
func (s *session) open(ctx context.Context) (*bootstrap.Components, error) {
	if s.engine != nil {
		return s.engine, nil
	}

	level := "warn"
	if s.verbose {
		level = "debug"
	}

	logger := logging.NewWithWriter(&logging.Config{
		Level:   level,
		Format:  "pretty",
		Service: "quotectl",
		Version: s.opts.Version,
	}, s.opts.Err)

	engine, err := s.opts.Build(ctx, s.profile, logger)
	if err != nil {
		return nil, err
	}

	s.engine = engine

	return engine, nil
}

// tenant returns the tenant flag or an error naming how to set it.
func (s *session) tenant() (string, error) {
	if s.tenantID == "" {
		return "", errors.New("no tenant given\nHint: use --tenant or set " + envTenant)
	}

	return s.tenantID, nil
}

func (s *session) close() error {
	if s.engine == nil {
		return nil
	}

	err := s.engine.Close()
	s.engine = nil

	return err
}

func buildFromConfig(ctx context.Context, profile string, logger *slog.Logger) (*bootstrap.Components, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return bootstrap.Build(ctx, cfg, logger, bootstrap.Options{})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
