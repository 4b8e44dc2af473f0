package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// quoteNoSuffixLen is how many characters of the revision ID end a generated quote number.
const quoteNoSuffixLen = 4

// LineageTracker assigns revision identity, root linkage and version numbers.
// It holds no state between calls.
type LineageTracker struct {
	newID func() string
	now   func() time.Time
}

// LineageTrackerConfig contains the tracker's injectable sources of identity and time.
type LineageTrackerConfig struct {
	// IDGenerator returns a new revision ID. Defaults to random UUIDs.
	IDGenerator func() string

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// NewLineageTracker creates a lineage tracker.
func NewLineageTracker(cfg LineageTrackerConfig) *LineageTracker {
	t := &LineageTracker{
		newID: cfg.IDGenerator,
		now:   cfg.Clock,
	}

	if t.newID == nil {
		t.newID = uuid.NewString
	}

	if t.now == nil {
		t.now = time.Now
	}

	return t
}

// ValidateSeed checks a seed without touching the store.
func (t *LineageTracker) ValidateSeed(seed *domain.RevisionSeed) error {
	if seed == nil {
		return domain.NewInvalidInputError("seed", "is required")
	}

	if seed.RootID != "" {
		return domain.NewInvalidInputErrorWithValue("rootId", "must not be set on a new lineage", seed.RootID)
	}

	if seed.VersionNumber != 0 {
		return domain.NewInvalidInputErrorWithValue("versionNumber", "must not be set on a new lineage", seed.VersionNumber)
	}

	if strings.TrimSpace(seed.TenantID) == "" {
		return domain.NewInvalidInputError("tenantId", "is required")
	}

	if !seed.IsBundleContainer && strings.TrimSpace(seed.CustomerID) == "" {
		return domain.NewInvalidInputError("customerId", "is required")
	}

	return nil
}

// BeginLineage builds version 1 of a new lineage. The result is DRAFT and inactive
// and its RootID equals its own ID.
func (t *LineageTracker) BeginLineage(seed *domain.RevisionSeed, actor string) (*domain.QuoteRevision, error) {
	if err := t.ValidateSeed(seed); err != nil {
		return nil, err
	}

	id := t.newID()
	now := t.now().UTC()

	quoteNo := strings.TrimSpace(seed.QuoteNo)
	if quoteNo == "" {
		quoteNo = generateQuoteNo(now, id)
	}

	rev := &domain.QuoteRevision{
		ID:                id,
		TenantID:          seed.TenantID,
		RootID:            id,
		VersionNumber:     1,
		BundleID:          seed.BundleID,
		IsBundleContainer: seed.IsBundleContainer,
		IsActive:          false,
		LifecycleStatus:   domain.StatusDraft,
		QuoteNo:           quoteNo,
		Title:             seed.Title,
		Notes:             seed.Notes,
		ValidUntil:        seed.ValidUntil,
		TotalAmount:       seed.TotalAmount,
		FinalAmount:       seed.FinalAmount,
		DiscountAmount:    seed.DiscountAmount,
		Items:             seed.Items,
		CustomerID:        seed.CustomerID,
		CreatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Detach from the caller's pointers and slices.
	return rev.Clone(), nil
}

// NextVersion returns the version number for a revision derived from prior:
// the highest version in prior's lineage plus one, not prior's version plus one.
// prior must belong to tenantID.
func (t *LineageTracker) NextVersion(ctx context.Context, tx ports.RevisionTx, tenantID string, prior *domain.QuoteRevision) (int, error) {
	if prior == nil {
		return 0, domain.NewNotFoundError("quote revision", "")
	}

	if prior.TenantID != tenantID {
		return 0, domain.NewNotFoundError("quote revision", prior.ID)
	}

	maxVersion, err := tx.MaxVersion(ctx, prior.RootID)
	if err != nil {
		return 0, fmt.Errorf("reading max version of lineage %s: %w", prior.RootID, err)
	}

	if maxVersion < prior.VersionNumber {
		maxVersion = prior.VersionNumber
	}

	return maxVersion + 1, nil
}

// Derive builds the next revision of prior's lineage. Business fields are copied
// forward, then overrides are applied. The bundle is set from bundleID only.
func (t *LineageTracker) Derive(
	prior *domain.QuoteRevision,
	rootQuoteNo string,
	version int,
	bundleID *string,
	overrides *domain.RevisionOverrides,
	actor string,
) *domain.QuoteRevision {
	now := t.now().UTC()
	parentID := prior.ID

	next := prior.Clone()
	next.ID = t.newID()
	next.ParentID = &parentID
	next.VersionNumber = version
	next.BundleID = bundleID
	next.IsActive = false
	next.LifecycleStatus = domain.StatusDraft
	next.QuoteNo = domain.VersionQuoteNo(rootQuoteNo, version)
	next.CreatedBy = actor
	next.CreatedAt = now
	next.UpdatedAt = now

	overrides.Apply(next)

	return next
}

// generateQuoteNo returns "QT<unix millis><id prefix>".
func generateQuoteNo(now time.Time, id string) string {
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > quoteNoSuffixLen {
		suffix = suffix[:quoteNoSuffixLen]
	}

	return fmt.Sprintf("QT%d%s", now.UnixMilli(), strings.ToUpper(suffix))
}
