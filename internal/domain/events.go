package domain

import "time"

// Audit event types emitted after a revision transaction commits.
const (
	EventLineageCreated   = "quote.lineage.created"
	EventVersionCreated   = "quote.version.created"
	EventVersionActivated = "quote.version.activated"
	EventVersionClosed    = "quote.version.closed"
)

// RevisionEvent records one committed change to a lineage.
type RevisionEvent struct {
	Type          string         `json:"type"`
	TenantID      string         `json:"tenantId"`
	RootID        string         `json:"rootId"`
	RevisionID    string         `json:"revisionId"`
	VersionNumber int            `json:"versionNumber"`
	Actor         string         `json:"actor,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
	Details       map[string]any `json:"details,omitempty"`
}

// EventType implements ports.Event.
func (e *RevisionEvent) EventType() string { return e.Type }

// Payload implements ports.Event.
func (e *RevisionEvent) Payload() any { return e }

// Tenant returns the owning tenant.
func (e *RevisionEvent) Tenant() string { return e.TenantID }

// Subject returns the revision the event is about.
func (e *RevisionEvent) Subject() string { return e.RevisionID }

func newRevisionEvent(eventType string, rev *QuoteRevision, actor string) *RevisionEvent {
	return &RevisionEvent{
		Type:          eventType,
		TenantID:      rev.TenantID,
		RootID:        rev.RootID,
		RevisionID:    rev.ID,
		VersionNumber: rev.VersionNumber,
		Actor:         actor,
		OccurredAt:    rev.UpdatedAt,
		Details:       map[string]any{},
	}
}

// NewLineageCreatedEvent describes the insertion of version 1.
func NewLineageCreatedEvent(rev *QuoteRevision, actor string) *RevisionEvent {
	e := newRevisionEvent(EventLineageCreated, rev, actor)
	e.Details["quoteNo"] = rev.QuoteNo
	e.Details["isBundleContainer"] = rev.IsBundleContainer

	if rev.BundleID != nil {
		e.Details["bundleId"] = *rev.BundleID
	}

	return e
}

// NewVersionCreatedEvent describes a revision derived from source.
func NewVersionCreatedEvent(rev, source *QuoteRevision, actor string) *RevisionEvent {
	e := newRevisionEvent(EventVersionCreated, rev, actor)
	e.Details["sourceQuoteId"] = source.ID
	e.Details["sourceVersionNumber"] = source.VersionNumber
	e.Details["quoteNo"] = rev.QuoteNo

	if rev.BundleID != nil {
		e.Details["bundleId"] = *rev.BundleID
	}

	return e
}

// NewVersionActivatedEvent describes an activation and the revisions it demoted.
func NewVersionActivatedEvent(rev *QuoteRevision, demoted []string, actor string) *RevisionEvent {
	e := newRevisionEvent(EventVersionActivated, rev, actor)
	e.Details["demotedIds"] = demoted

	return e
}

// NewVersionClosedEvent describes a move to a terminal status.
func NewVersionClosedEvent(rev *QuoteRevision, previous LifecycleStatus, actor string) *RevisionEvent {
	e := newRevisionEvent(EventVersionClosed, rev, actor)
	e.Details["previousStatus"] = string(previous)
	e.Details["status"] = string(rev.LifecycleStatus)

	return e
}
