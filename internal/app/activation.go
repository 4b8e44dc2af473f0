package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// ActivationManager guarantees at most one active revision per lineage.
type ActivationManager struct {
	now    func() time.Time
	logger *slog.Logger
}

// ActivationManagerConfig contains configuration for the activation manager.
type ActivationManagerConfig struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

// ActivationResult describes what an activation changed.
type ActivationResult struct {
	// Revision is the target after activation.
	Revision *domain.QuoteRevision

	// Demoted lists the revisions that lost the active flag.
	Demoted []string

	// Changed is false when the lineage was already in its final state.
	Changed bool
}

// CloseResult describes a move to a terminal status.
type CloseResult struct {
	Revision *domain.QuoteRevision
	Previous domain.LifecycleStatus
}

// NewActivationManager creates an activation manager.
func NewActivationManager(cfg ActivationManagerConfig) *ActivationManager {
	m := &ActivationManager{
		now:    cfg.Clock,
		logger: cfg.Logger,
	}

	if m.now == nil {
		m.now = time.Now
	}

	if m.logger == nil {
		m.logger = slog.Default()
	}

	return m
}

// Activate makes revisionID the single active revision of its lineage.
//
// The lineage lock is held from the re-read until the transaction ends, so two
// concurrent activations of the same lineage serialize. Rows already in their
// final state are not rewritten, which makes a repeated call a no-op.
func (m *ActivationManager) Activate(ctx context.Context, tx ports.RevisionTx, revisionID, tenantID string) (*ActivationResult, error) {
	logger := logging.FromContextOr(ctx, m.logger).With(
		slog.String("component", "activation_manager"),
		slog.String("revision_id", revisionID),
	)

	target, err := m.loadTarget(ctx, tx, revisionID, tenantID)
	if err != nil {
		return nil, err
	}

	if target.LifecycleStatus.IsTerminal() {
		return nil, domain.NewInvalidStateError("activate", target.ID, target.LifecycleStatus)
	}

	if err := tx.LockLineage(ctx, tenantID, target.RootID); err != nil {
		return nil, fmt.Errorf("locking lineage %s: %w", target.RootID, err)
	}

	lineage, err := tx.ListLineage(ctx, target.RootID)
	if err != nil {
		return nil, fmt.Errorf("reading lineage %s: %w", target.RootID, err)
	}

	// Re-read under the lock: another transaction may have closed the target.
	current := findRevision(lineage, target.ID)
	if current == nil {
		return nil, domain.NewNotFoundError("quote revision", target.ID)
	}

	if current.LifecycleStatus.IsTerminal() {
		return nil, domain.NewInvalidStateError("activate", current.ID, current.LifecycleStatus)
	}

	now := m.now().UTC()
	result := &ActivationResult{Demoted: []string{}}

	// Demote before promoting so the single-active constraint holds after every statement.
	for _, rev := range lineage {
		if rev.ID == current.ID {
			continue
		}

		status := rev.LifecycleStatus
		if !status.IsTerminal() {
			status = domain.StatusDraft
		}

		if !rev.IsActive && status == rev.LifecycleStatus {
			continue
		}

		if err := tx.UpdateState(ctx, rev.ID, false, status, now); err != nil {
			return nil, fmt.Errorf("demoting revision %s: %w", rev.ID, err)
		}

		if rev.IsActive {
			result.Demoted = append(result.Demoted, rev.ID)
		}

		logger.Log(ctx, logging.LevelTrace, "revision demoted",
			slog.String("demoted_id", rev.ID),
			slog.String("status", string(status)),
		)

		result.Changed = true
	}

	if !current.IsActive || current.LifecycleStatus != domain.StatusActive {
		if err := tx.UpdateState(ctx, current.ID, true, domain.StatusActive, now); err != nil {
			return nil, fmt.Errorf("promoting revision %s: %w", current.ID, err)
		}

		current.IsActive = true
		current.LifecycleStatus = domain.StatusActive
		current.UpdatedAt = now
		result.Changed = true
	}

	result.Revision = current

	logger.DebugContext(ctx, "activation applied",
		slog.Bool("changed", result.Changed),
		slog.Int("demoted", len(result.Demoted)),
	)

	return result, nil
}

// Close moves a non-terminal revision to a terminal status. The active flag is
// kept, so an accepted active revision stays the operative one.
func (m *ActivationManager) Close(
	ctx context.Context,
	tx ports.RevisionTx,
	revisionID, tenantID string,
	status domain.LifecycleStatus,
) (*CloseResult, error) {
	if !status.IsTerminal() {
		return nil, domain.NewInvalidInputErrorWithValue("status", "must be a terminal status", string(status))
	}

	target, err := m.loadTarget(ctx, tx, revisionID, tenantID)
	if err != nil {
		return nil, err
	}

	if err := tx.LockLineage(ctx, tenantID, target.RootID); err != nil {
		return nil, fmt.Errorf("locking lineage %s: %w", target.RootID, err)
	}

	current, err := m.loadTarget(ctx, tx, revisionID, tenantID)
	if err != nil {
		return nil, err
	}

	if current.LifecycleStatus.IsTerminal() {
		return nil, domain.NewInvalidStateError("close", current.ID, current.LifecycleStatus)
	}

	now := m.now().UTC()
	if err := tx.UpdateState(ctx, current.ID, current.IsActive, status, now); err != nil {
		return nil, fmt.Errorf("closing revision %s: %w", current.ID, err)
	}

	previous := current.LifecycleStatus
	current.LifecycleStatus = status
	current.UpdatedAt = now

	return &CloseResult{Revision: current, Previous: previous}, nil
}

// loadTarget loads a revision of tenantID. A revision of another tenant is reported as missing.
func (m *ActivationManager) loadTarget(ctx context.Context, tx ports.RevisionTx, revisionID, tenantID string) (*domain.QuoteRevision, error) {
	rev, err := tx.GetRevision(ctx, revisionID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("quote revision", revisionID)
		}

		return nil, fmt.Errorf("loading revision %s: %w", revisionID, err)
	}

	if rev.TenantID != tenantID {
		return nil, domain.NewNotFoundError("quote revision", revisionID)
	}

	return rev, nil
}

func findRevision(lineage domain.Lineage, id string) *domain.QuoteRevision {
	for _, rev := range lineage {
		if rev.ID == id {
			return rev
		}
	}

	return nil
}
