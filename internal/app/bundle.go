package app

import (
	"context"
	"fmt"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// BundleGuard keeps bundle membership consistent across a lineage.
// Membership is checked when a revision is created and never afterwards.
type BundleGuard struct{}

// NewBundleGuard creates a bundle guard.
func NewBundleGuard() *BundleGuard {
	return &BundleGuard{}
}

// ResolveBundleFor returns the bundle a revision derived from prior belongs to.
// It is prior's bundle, including none. Callers never choose a new revision's bundle.
func (g *BundleGuard) ResolveBundleFor(prior *domain.QuoteRevision) *string {
	if prior.BundleID == nil {
		return nil
	}

	bundleID := *prior.BundleID

	return &bundleID
}

// ValidateBundleTarget checks that bundleID names a bundle container of tenantID.
// A nil bundleID passes.
func (g *BundleGuard) ValidateBundleTarget(ctx context.Context, tx ports.RevisionTx, tenantID string, bundleID *string) error {
	if bundleID == nil {
		return nil
	}

	if *bundleID == "" {
		return domain.NewInvalidBundleError("", "bundle id is empty")
	}

	target, err := tx.GetRevision(ctx, *bundleID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewInvalidBundleError(*bundleID, "bundle does not exist")
		}

		return fmt.Errorf("loading bundle %s: %w", *bundleID, err)
	}

	// Another tenant's bundle is reported exactly like a missing one.
	if target.TenantID != tenantID {
		return domain.NewInvalidBundleError(*bundleID, "bundle does not exist")
	}

	if !target.IsBundleContainer {
		return domain.NewInvalidBundleError(*bundleID, "target is not a bundle container")
	}

	// Members reference the container lineage by its root; bundle listings key on it.
	if !target.IsRoot() {
		return domain.NewInvalidBundleError(*bundleID, "target is a later version of a bundle container, use its root "+target.RootID)
	}

	return nil
}

// ValidateSeed checks the bundle reference of a new lineage. Containers cannot be nested.
func (g *BundleGuard) ValidateSeed(ctx context.Context, tx ports.RevisionTx, seed *domain.RevisionSeed) error {
	if seed.IsBundleContainer && seed.BundleID != nil {
		return domain.NewInvalidBundleError(*seed.BundleID, "a bundle container cannot belong to a bundle")
	}

	return g.ValidateBundleTarget(ctx, tx, seed.TenantID, seed.BundleID)
}
