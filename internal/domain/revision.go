package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// LifecycleStatus is the status of a single quote revision.
type LifecycleStatus string

const (
	StatusDraft     LifecycleStatus = "DRAFT"
	StatusActive    LifecycleStatus = "ACTIVE"
	StatusAccepted  LifecycleStatus = "ACCEPTED"
	StatusRejected  LifecycleStatus = "REJECTED"
	StatusExpired   LifecycleStatus = "EXPIRED"
	StatusCancelled LifecycleStatus = "CANCELLED"
)

var terminalStatuses = []LifecycleStatus{StatusAccepted, StatusRejected, StatusExpired, StatusCancelled}

// IsTerminal reports whether the status excludes the revision from future activation.
func (s LifecycleStatus) IsTerminal() bool {
	return slices.Contains(terminalStatuses, s)
}

// IsValid reports whether s is a known status.
func (s LifecycleStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseLifecycleStatus converts a string to a LifecycleStatus.
func ParseLifecycleStatus(s string) (LifecycleStatus, error) {
	status := LifecycleStatus(s)
	if !status.IsValid() {
		return "", NewInvalidInputErrorWithValue("lifecycleStatus", "unknown status", s)
	}

	return status, nil
}

// Decimal is a monetary value computed upstream. The engine stores it verbatim
// and never does arithmetic on it.
type Decimal string

// QuoteRevision is one persisted, immutable-after-creation version of a quote.
// Only IsActive, LifecycleStatus and UpdatedAt change after insert.
type QuoteRevision struct {
	ID       string
	TenantID string

	// RootID is the ID of the first revision in the lineage. Equal to ID for version 1.
	RootID string

	// ParentID is the revision this one was derived from. Nil for version 1.
	ParentID *string

	VersionNumber int

	// BundleID references a bundle container revision. Carried unchanged across a lineage.
	BundleID *string

	IsBundleContainer bool
	IsActive          bool
	LifecycleStatus   LifecycleStatus

	QuoteNo    string
	Title      string
	Notes      string
	ValidUntil *time.Time

	TotalAmount    Decimal
	FinalAmount    Decimal
	DiscountAmount Decimal

	// Items is the opaque line item payload supplied by the pricing collaborator.
	Items json.RawMessage

	CustomerID string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsRoot reports whether the revision is the first of its lineage.
func (r *QuoteRevision) IsRoot() bool {
	return r.ID == r.RootID
}

// BundleRef returns the bundle ID or an empty string.
func (r *QuoteRevision) BundleRef() string {
	if r.BundleID == nil {
		return ""
	}

	return *r.BundleID
}

// Clone returns a deep copy of the revision.
func (r *QuoteRevision) Clone() *QuoteRevision {
	if r == nil {
		return nil
	}

	c := *r
	c.ParentID = cloneString(r.ParentID)
	c.BundleID = cloneString(r.BundleID)

	if r.ValidUntil != nil {
		v := *r.ValidUntil
		c.ValidUntil = &v
	}

	if r.Items != nil {
		c.Items = append(json.RawMessage(nil), r.Items...)
	}

	return &c
}

// RevisionSeed is the caller-supplied data for the first revision of a lineage.
// RootID and VersionNumber exist only so that a caller supplying them can be rejected.
type RevisionSeed struct {
	TenantID          string
	CustomerID        string
	BundleID          *string
	IsBundleContainer bool

	QuoteNo    string
	Title      string
	Notes      string
	ValidUntil *time.Time

	TotalAmount    Decimal
	FinalAmount    Decimal
	DiscountAmount Decimal
	Items          json.RawMessage

	RootID        string
	VersionNumber int
}

// RevisionOverrides are the caller-supplied field changes applied when deriving
// the next revision. Nil fields keep the predecessor's value.
type RevisionOverrides struct {
	TotalAmount    *Decimal
	FinalAmount    *Decimal
	DiscountAmount *Decimal
	Items          json.RawMessage
	Title          *string
	Notes          *string
	ValidUntil     *time.Time

	// BundleID is never applied. A non-nil value is ignored or rejected.
	BundleID *string
}

// Apply copies non-nil overrides onto rev.
func (o *RevisionOverrides) Apply(rev *QuoteRevision) {
	if o == nil {
		return
	}

	if o.TotalAmount != nil {
		rev.TotalAmount = *o.TotalAmount
	}

	if o.FinalAmount != nil {
		rev.FinalAmount = *o.FinalAmount
	}

	if o.DiscountAmount != nil {
		rev.DiscountAmount = *o.DiscountAmount
	}

	if o.Items != nil {
		rev.Items = append(json.RawMessage(nil), o.Items...)
	}

	if o.Title != nil {
		rev.Title = *o.Title
	}

	if o.Notes != nil {
		rev.Notes = *o.Notes
	}

	if o.ValidUntil != nil {
		v := *o.ValidUntil
		rev.ValidUntil = &v
	}
}

// VersionQuoteNo derives the quote number of a later revision from the root's number.
func VersionQuoteNo(rootQuoteNo string, version int) string {
	return fmt.Sprintf("%s-V%d", rootQuoteNo, version)
}

// Lineage is the ordered family of revisions sharing one root.
type Lineage []*QuoteRevision

// Active returns the active revision of the lineage, or nil.
func (l Lineage) Active() *QuoteRevision {
	for _, r := range l {
		if r.IsActive {
			return r
		}
	}

	return nil
}

// Latest returns the revision with the highest version number, or nil.
func (l Lineage) Latest() *QuoteRevision {
	var latest *QuoteRevision
	for _, r := range l {
		if latest == nil || r.VersionNumber > latest.VersionNumber {
			latest = r
		}
	}

	return latest
}

// Sort orders the lineage by version number ascending.
func (l Lineage) Sort() {
	slices.SortFunc(l, func(a, b *QuoteRevision) int {
		return a.VersionNumber - b.VersionNumber
	})
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
