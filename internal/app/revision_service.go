// Package app contains application services that orchestrate use cases.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-revisions/internal/app/outbox"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// instrumentationName is used for the OpenTelemetry tracer.
const instrumentationName = "github.com/jsamuelsen/quote-revisions/internal/app"

// RevisionService is the entry point for every quote revision use case.
// Each mutating operation runs as one store transaction that is retried on
// conflict; audit events are published only after the transaction commits.
type RevisionService struct {
	store      ports.RevisionStore
	publisher  ports.EventPublisher
	flags      ports.FeatureFlags
	tracker    *LineageTracker
	guard      *BundleGuard
	activation *ActivationManager
	retry      RetryPolicy
	metrics    *telemetry.EngineMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
}

// RevisionServiceConfig contains the dependencies of the revision service.
type RevisionServiceConfig struct {
	// Store is required.
	Store ports.RevisionStore

	// Publisher receives audit events after commit. Optional.
	Publisher ports.EventPublisher

	// Flags evaluates feature flags. Optional; every flag is off without it.
	Flags ports.FeatureFlags

	// Retry defaults to DefaultRetryPolicy when MaxAttempts is zero.
	Retry RetryPolicy

	// Metrics is optional.
	Metrics *telemetry.EngineMetrics

	// IDGenerator and Clock are passed to the lineage tracker and activation manager.
	IDGenerator func() string
	Clock       func() time.Time

	Logger *slog.Logger
}

// NewRevisionService creates a revision service.
// Panics if Store is nil.
func NewRevisionService(cfg RevisionServiceConfig) *RevisionService {
	if cfg.Store == nil {
		panic("app: RevisionServiceConfig.Store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}

	return &RevisionService{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		flags:     cfg.Flags,
		tracker: NewLineageTracker(LineageTrackerConfig{
			IDGenerator: cfg.IDGenerator,
			Clock:       cfg.Clock,
		}),
		guard: NewBundleGuard(),
		activation: NewActivationManager(ActivationManagerConfig{
			Clock:  cfg.Clock,
			Logger: logger,
		}),
		retry:    retry,
		metrics:  cfg.Metrics,
		tracer:   otel.Tracer(instrumentationName),
		logger:   logger,
	}
}

// mutation is the committed result of one mutating transaction.
type mutation struct {
	revision *domain.QuoteRevision
	prior    *domain.QuoteRevision
	demoted  []string
	changed  bool
	events   *outbox.Outbox
}

type nextVersionInput struct {
	priorID   string
	tenantID  string
	actor     string
	overrides *domain.RevisionOverrides
}

// CreateNextVersion derives a new DRAFT, inactive revision from priorID.
//
// The new revision's version is the lineage maximum plus one and its bundle is
// the prior's bundle. The prior revision keeps its activation state.
func (s *RevisionService) CreateNextVersion(
	ctx context.Context,
	priorID, tenantID, actor string,
	overrides *domain.RevisionOverrides,
) (rev *domain.QuoteRevision, err error) {
	ctx, span := s.startSpan(ctx, "CreateNextVersion",
		attribute.String("quote.prior_id", priorID),
		attribute.String("quote.tenant_id", tenantID),
	)
	defer func() { endSpan(span, err) }()

	op := Mutation[nextVersionInput]{
		Name:     "create_next_version",
		Validate: s.validateNextVersion,
		Commit: func(ctx context.Context, in nextVersionInput) (*mutation, error) {
			return s.transact(ctx, "create_next_version", func(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox) (*mutation, error) {
				return s.createNextVersion(ctx, tx, box, in)
			})
		},
		Verify: func(_ nextVersionInput, m *mutation) error {
			switch {
			case m.revision.RootID != m.prior.RootID:
				return fmt.Errorf("%w: root changed from %s to %s", errPostCondition, m.prior.RootID, m.revision.RootID)
			case m.revision.BundleRef() != m.prior.BundleRef():
				return fmt.Errorf("%w: bundle changed from %q to %q", errPostCondition, m.prior.BundleRef(), m.revision.BundleRef())
			case m.revision.VersionNumber <= m.prior.VersionNumber:
				return fmt.Errorf("%w: version %d does not follow %d", errPostCondition, m.revision.VersionNumber, m.prior.VersionNumber)
			case m.revision.IsActive:
				return fmt.Errorf("%w: new version is active", errPostCondition)
			}

			return nil
		},
		Publish: func(ctx context.Context, _ nextVersionInput, m *mutation) error {
			s.metrics.RevisionCreated(ctx, "version")

			return s.flush(ctx, m)
		},
	}

	return op.run(ctx, s.loggerFor(ctx), nextVersionInput{
		priorID:   priorID,
		tenantID:  tenantID,
		actor:     actor,
		overrides: overrides,
	})
}

func (s *RevisionService) validateNextVersion(ctx context.Context, in nextVersionInput) error {
	if err := requireIDs(map[string]string{"priorId": in.priorID, "tenantId": in.tenantID}); err != nil {
		return err
	}

	if in.overrides == nil || in.overrides.BundleID == nil {
		return nil
	}

	if ports.GetFeatureFlagUser(ctx) == nil {
		ctx = ports.WithFeatureFlagUser(ctx, &ports.FeatureFlagUser{ID: in.actor, TenantID: in.tenantID})
	}

	if s.flags != nil && s.flags.IsEnabled(ctx, ports.FlagStrictBundleOverride, false) {
		return domain.NewInvalidInputErrorWithValue("bundleId", "bundle membership cannot change between versions", *in.overrides.BundleID)
	}

	s.loggerFor(ctx).WarnContext(ctx, "ignoring bundle override on next version",
		slog.String("prior_id", in.priorID),
		slog.String("requested_bundle_id", *in.overrides.BundleID),
	)

	return nil
}

func (s *RevisionService) createNextVersion(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox, in nextVersionInput) (*mutation, error) {
	prior, err := s.loadForTenant(ctx, tx, in.priorID, in.tenantID, "create next version")
	if err != nil {
		return nil, err
	}

	if err := tx.LockLineage(ctx, in.tenantID, prior.RootID); err != nil {
		return nil, fmt.Errorf("locking lineage %s: %w", prior.RootID, err)
	}

	version, err := s.tracker.NextVersion(ctx, tx, in.tenantID, prior)
	if err != nil {
		return nil, err
	}

	root := prior
	if !prior.IsRoot() {
		root, err = tx.GetRevision(ctx, prior.RootID)
		if err != nil {
			return nil, fmt.Errorf("loading root %s: %w", prior.RootID, err)
		}
	}

	next := s.tracker.Derive(prior, root.QuoteNo, version, s.guard.ResolveBundleFor(prior), in.overrides, in.actor)

	if err := tx.InsertRevision(ctx, next); err != nil {
		return nil, fmt.Errorf("inserting version %d of lineage %s: %w", version, prior.RootID, err)
	}

	s.stage(ctx, box, domain.NewVersionCreatedEvent(next, prior, in.actor))

	return &mutation{revision: next, prior: prior, changed: true}, nil
}

type activateInput struct {
	revisionID string
	tenantID   string
	actor      string
}

// ActivateVersion makes revisionID the single active revision of its lineage
// and returns it. Activating an already active revision changes nothing.
func (s *RevisionService) ActivateVersion(ctx context.Context, revisionID, tenantID, actor string) (rev *domain.QuoteRevision, err error) {
	ctx, span := s.startSpan(ctx, "ActivateVersion",
		attribute.String("quote.revision_id", revisionID),
		attribute.String("quote.tenant_id", tenantID),
	)
	defer func() { endSpan(span, err) }()

	op := Mutation[activateInput]{
		Name: "activate_version",
		Validate: func(_ context.Context, in activateInput) error {
			return requireIDs(map[string]string{"revisionId": in.revisionID, "tenantId": in.tenantID})
		},
		Commit: func(ctx context.Context, in activateInput) (*mutation, error) {
			return s.transact(ctx, "activate_version", func(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox) (*mutation, error) {
				result, err := s.activation.Activate(ctx, tx, in.revisionID, in.tenantID)
				if err != nil {
					return nil, err
				}

				if result.Changed {
					s.stage(ctx, box, domain.NewVersionActivatedEvent(result.Revision, result.Demoted, in.actor))
				}

				return &mutation{revision: result.Revision, demoted: result.Demoted, changed: result.Changed}, nil
			})
		},
		Verify: func(in activateInput, m *mutation) error {
			if m.revision.ID != in.revisionID || !m.revision.IsActive || m.revision.LifecycleStatus != domain.StatusActive {
				return fmt.Errorf("%w: revision %s is not active after activation", errPostCondition, in.revisionID)
			}

			if slices.Contains(m.demoted, m.revision.ID) {
				return fmt.Errorf("%w: revision %s demoted itself", errPostCondition, in.revisionID)
			}

			return nil
		},
		Publish: func(ctx context.Context, _ activateInput, m *mutation) error {
			if m.changed {
				s.metrics.Activated(ctx, len(m.demoted))
			}

			return s.flush(ctx, m)
		},
	}

	return op.run(ctx, s.loggerFor(ctx), activateInput{revisionID: revisionID, tenantID: tenantID, actor: actor})
}

type closeInput struct {
	revisionID string
	tenantID   string
	actor      string
	status     domain.LifecycleStatus
}

// CloseVersion moves a revision to a terminal status.
func (s *RevisionService) CloseVersion(
	ctx context.Context,
	revisionID, tenantID, actor string,
	status domain.LifecycleStatus,
) (rev *domain.QuoteRevision, err error) {
	ctx, span := s.startSpan(ctx, "CloseVersion",
		attribute.String("quote.revision_id", revisionID),
		attribute.String("quote.status", string(status)),
	)
	defer func() { endSpan(span, err) }()

	op := Mutation[closeInput]{
		Name: "close_version",
		Validate: func(_ context.Context, in closeInput) error {
			if err := requireIDs(map[string]string{"revisionId": in.revisionID, "tenantId": in.tenantID}); err != nil {
				return err
			}

			if !in.status.IsTerminal() {
				return domain.NewInvalidInputErrorWithValue("status", "must be one of ACCEPTED, REJECTED, EXPIRED, CANCELLED", string(in.status))
			}

			return nil
		},
		Commit: func(ctx context.Context, in closeInput) (*mutation, error) {
			return s.transact(ctx, "close_version", func(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox) (*mutation, error) {
				result, err := s.activation.Close(ctx, tx, in.revisionID, in.tenantID, in.status)
				if err != nil {
					return nil, err
				}

				s.stage(ctx, box, domain.NewVersionClosedEvent(result.Revision, result.Previous, in.actor))

				return &mutation{revision: result.Revision, changed: true}, nil
			})
		},
		Verify: func(in closeInput, m *mutation) error {
			if m.revision.LifecycleStatus != in.status {
				return fmt.Errorf("%w: revision %s has status %s", errPostCondition, in.revisionID, m.revision.LifecycleStatus)
			}

			return nil
		},
		Publish: func(ctx context.Context, _ closeInput, m *mutation) error {
			return s.flush(ctx, m)
		},
	}

	return op.run(ctx, s.loggerFor(ctx), closeInput{revisionID: revisionID, tenantID: tenantID, actor: actor, status: status})
}

type beginInput struct {
	seed  *domain.RevisionSeed
	actor string
	kind  string
}

// BeginLineage inserts version 1 of a new lineage.
func (s *RevisionService) BeginLineage(ctx context.Context, seed *domain.RevisionSeed, actor string) (*domain.QuoteRevision, error) {
	return s.begin(ctx, beginInput{seed: seed, actor: actor, kind: "root"})
}

// CreateBundleContainer inserts a bundle container that other lineages can join.
func (s *RevisionService) CreateBundleContainer(ctx context.Context, seed *domain.RevisionSeed, actor string) (*domain.QuoteRevision, error) {
	if seed != nil {
		container := *seed
		container.IsBundleContainer = true
		seed = &container
	}

	return s.begin(ctx, beginInput{seed: seed, actor: actor, kind: "bundle"})
}

func (s *RevisionService) begin(ctx context.Context, input beginInput) (rev *domain.QuoteRevision, err error) {
	ctx, span := s.startSpan(ctx, "BeginLineage", attribute.String("quote.kind", input.kind))
	defer func() { endSpan(span, err) }()

	op := Mutation[beginInput]{
		Name: "begin_lineage",
		Validate: func(_ context.Context, in beginInput) error {
			return s.tracker.ValidateSeed(in.seed)
		},
		Commit: func(ctx context.Context, in beginInput) (*mutation, error) {
			return s.transact(ctx, "begin_lineage", func(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox) (*mutation, error) {
				if err := s.guard.ValidateSeed(ctx, tx, in.seed); err != nil {
					return nil, err
				}

				rev, err := s.tracker.BeginLineage(in.seed, in.actor)
				if err != nil {
					return nil, err
				}

				if err := tx.InsertRevision(ctx, rev); err != nil {
					return nil, fmt.Errorf("inserting lineage root: %w", err)
				}

				s.stage(ctx, box, domain.NewLineageCreatedEvent(rev, in.actor))

				return &mutation{revision: rev, changed: true}, nil
			})
		},
		Verify: func(in beginInput, m *mutation) error {
			if !m.revision.IsRoot() || m.revision.VersionNumber != 1 || m.revision.IsActive {
				return fmt.Errorf("%w: %s is not an inactive version 1 root", errPostCondition, m.revision.ID)
			}

			if m.revision.IsBundleContainer != in.seed.IsBundleContainer {
				return fmt.Errorf("%w: container flag not preserved", errPostCondition)
			}

			return nil
		},
		Publish: func(ctx context.Context, in beginInput, m *mutation) error {
			s.metrics.RevisionCreated(ctx, in.kind)

			return s.flush(ctx, m)
		},
	}

	return op.run(ctx, s.loggerFor(ctx), input)
}

// GetRevision returns one revision of tenantID.
func (s *RevisionService) GetRevision(ctx context.Context, id, tenantID string) (rev *domain.QuoteRevision, err error) {
	ctx, span := s.startSpan(ctx, "GetRevision", attribute.String("quote.revision_id", id))
	defer func() { endSpan(span, err) }()

	if err := requireIDs(map[string]string{"id": id, "tenantId": tenantID}); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
		loaded, err := s.loadForTenant(ctx, tx, id, tenantID, "get revision")
		if err != nil {
			return err
		}

		rev = loaded

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rev, nil
}

// ListLineage returns every revision of the lineage containing rootID, ordered by version.
// A non-root ID resolves to its lineage.
func (s *RevisionService) ListLineage(ctx context.Context, rootID, tenantID string) (lineage domain.Lineage, err error) {
	ctx, span := s.startSpan(ctx, "ListLineage", attribute.String("quote.root_id", rootID))
	defer func() { endSpan(span, err) }()

	if err := requireIDs(map[string]string{"rootId": rootID, "tenantId": tenantID}); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
		loaded, err := s.readLineage(ctx, tx, rootID, tenantID)
		if err != nil {
			return err
		}

		lineage = loaded

		return nil
	})
	if err != nil {
		return nil, err
	}

	return lineage, nil
}

// ActiveRevision returns the active revision of a lineage, or NotFound when none is active.
func (s *RevisionService) ActiveRevision(ctx context.Context, rootID, tenantID string) (*domain.QuoteRevision, error) {
	lineage, err := s.ListLineage(ctx, rootID, tenantID)
	if err != nil {
		return nil, err
	}

	active := lineage.Active()
	if active == nil {
		return nil, domain.NewNotFoundError("active revision", rootID)
	}

	return active, nil
}

// ListBundle returns the lineages of every member of a bundle, each ordered by version.
// Lineages are ordered by the creation time of their root.
func (s *RevisionService) ListBundle(ctx context.Context, bundleID, tenantID string) (lineages []domain.Lineage, err error) {
	ctx, span := s.startSpan(ctx, "ListBundle", attribute.String("quote.bundle_id", bundleID))
	defer func() { endSpan(span, err) }()

	if err := requireIDs(map[string]string{"bundleId": bundleID, "tenantId": tenantID}); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
		container, err := s.loadForTenant(ctx, tx, bundleID, tenantID, "list bundle")
		if err != nil {
			return err
		}

		if !container.IsBundleContainer {
			return domain.NewInvalidBundleError(bundleID, "target is not a bundle container")
		}

		members, err := tx.ListBundleMembers(ctx, bundleID)
		if err != nil {
			return fmt.Errorf("listing members of bundle %s: %w", bundleID, err)
		}

		lineages = groupByLineage(members)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return lineages, nil
}

// transact runs fn in a store transaction, retrying on conflict with a fresh
// transaction and a fresh outbox for every attempt.
func (s *RevisionService) transact(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, tx ports.RevisionTx, box *outbox.Outbox) (*mutation, error),
) (*mutation, error) {
	logger := s.loggerFor(ctx)

	onRetry := func(retry int, backoff time.Duration, err error) {
		s.metrics.ConflictRetry(ctx, operation)
		logger.DebugContext(ctx, "retrying after conflict",
			slog.String("operation", operation),
			slog.Int("retry", retry),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
	}

	return retryOnConflict(ctx, s.retry, onRetry, func(ctx context.Context) (*mutation, error) {
		var result *mutation

		box := outbox.New()

		err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
			m, err := fn(ctx, tx, box)
			if err != nil {
				return err
			}

			result = m

			return nil
		})
		if err != nil {
			return nil, err
		}

		result.events = box

		return result, nil
	})
}

// stage queues an audit event. Events are dropped without a publisher.
func (s *RevisionService) stage(ctx context.Context, box *outbox.Outbox, event *domain.RevisionEvent) {
	if s.publisher == nil {
		return
	}

	event.CorrelationID = ports.RequestInfoFrom(ctx).CorrelationID

	// The outbox is private to this attempt and not yet flushed, so Stage cannot fail.
	_ = box.Stage(outbox.Publish(s.publisher, event))
}

// flush publishes the staged audit events of a committed mutation.
// A failed event is logged and counted; the committed operation still succeeds.
func (s *RevisionService) flush(ctx context.Context, m *mutation) error {
	for _, failure := range m.events.Flush(ctx) {
		eventType := "unknown"
		if action, ok := failure.Action.(*outbox.PublishAction); ok {
			eventType = action.Event.EventType()
		}

		s.metrics.AuditFailure(ctx, eventType)
		s.loggerFor(ctx).WarnContext(ctx, "audit event dropped",
			slog.String("action", failure.Action.Description()),
			slog.String("revision_id", m.revision.ID),
			slog.Any("error", failure.Err),
		)
	}

	return nil
}

// loadForTenant loads a revision, reporting another tenant's revision as forbidden.
func (s *RevisionService) loadForTenant(ctx context.Context, tx ports.RevisionTx, id, tenantID, operation string) (*domain.QuoteRevision, error) {
	rev, err := tx.GetRevision(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("quote revision", id)
		}

		return nil, fmt.Errorf("loading revision %s: %w", id, err)
	}

	if rev.TenantID != tenantID {
		return nil, domain.NewForbiddenError(operation, "revision belongs to another tenant")
	}

	return rev, nil
}

func (s *RevisionService) readLineage(ctx context.Context, tx ports.RevisionTx, rootID, tenantID string) (domain.Lineage, error) {
	root, err := tx.GetRevision(ctx, rootID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("lineage", rootID)
		}

		return nil, fmt.Errorf("loading root %s: %w", rootID, err)
	}

	if root.TenantID != tenantID {
		return nil, domain.NewForbiddenError("list lineage", "lineage belongs to another tenant")
	}

	lineage, err := tx.ListLineage(ctx, root.RootID)
	if err != nil {
		return nil, fmt.Errorf("listing lineage %s: %w", root.RootID, err)
	}

	lineage.Sort()

	return lineage, nil
}

func (s *RevisionService) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, s.logger).With(slog.String("component", "revision_service"))
}

func (s *RevisionService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "RevisionService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

// requireIDs returns an InvalidInput error naming the first blank field, in sorted order.
func requireIDs(fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			return domain.NewInvalidInputError(name, "is required")
		}
	}

	return nil
}

// groupByLineage splits bundle members into lineages ordered by root creation time.
func groupByLineage(members []*domain.QuoteRevision) []domain.Lineage {
	byRoot := make(map[string]domain.Lineage)
	order := make([]string, 0)

	for _, rev := range members {
		if _, ok := byRoot[rev.RootID]; !ok {
			order = append(order, rev.RootID)
		}

		byRoot[rev.RootID] = append(byRoot[rev.RootID], rev)
	}

	lineages := make([]domain.Lineage, 0, len(order))
	for _, rootID := range order {
		lineage := byRoot[rootID]
		lineage.Sort()
		lineages = append(lineages, lineage)
	}

	slices.SortStableFunc(lineages, func(a, b domain.Lineage) int {
		if c := a[0].CreatedAt.Compare(b[0].CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a[0].RootID, b[0].RootID)
	})

	return lineages
}
