// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrConflict, etc.)
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// RevisionStore is the durable store of quote revisions.
//
// Example usage in application layer:
//
//	err := store.WithinTx(ctx, func(ctx context.Context, tx ports.RevisionTx) error {
//	    prior, err := tx.GetRevision(ctx, id)
//	    ...
//	    return tx.InsertRevision(ctx, next)
//	})
type RevisionStore interface {
	// WithinTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back on error, panic or context cancellation.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx RevisionTx) error) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

// RevisionTx is the set of reads and writes available inside a transaction.
// Implementations never filter by tenant; tenant checks belong to the caller.
type RevisionTx interface {
	// GetRevision returns the revision or domain.ErrNotFound.
	GetRevision(ctx context.Context, id string) (*domain.QuoteRevision, error)

	// LockLineage blocks until the caller holds the (tenantID, rootID) lock.
	// The lock is released when the transaction ends.
	LockLineage(ctx context.Context, tenantID, rootID string) error

	// MaxVersion returns the highest version number under rootID, 0 if none.
	MaxVersion(ctx context.Context, rootID string) (int, error)

	// ListLineage returns every revision under rootID ordered by version ascending.
	ListLineage(ctx context.Context, rootID string) (domain.Lineage, error)

	// ListBundleMembers returns every revision whose bundle ID equals bundleID.
	ListBundleMembers(ctx context.Context, bundleID string) ([]*domain.QuoteRevision, error)

	// InsertRevision stores a new revision.
	// Returns domain.ErrConflict when (rootID, versionNumber), the tenant's quote
	// number or the lineage's active slot is already taken.
	InsertRevision(ctx context.Context, rev *domain.QuoteRevision) error

	// UpdateState changes the activation flag and lifecycle status of a revision.
	// Returns domain.ErrNotFound if the revision does not exist and
	// domain.ErrConflict if the lineage's active slot is taken.
	UpdateState(ctx context.Context, id string, isActive bool, status domain.LifecycleStatus, updatedAt time.Time) error
}

// EventPublisher defines the contract for publishing domain events.
// Implementations may use a DynamoDB table, a log stream or a message bus.
type EventPublisher interface {
	// Publish sends an event to the configured destination.
	// Returns domain.ErrUnavailable if the destination is unreachable.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the type identifier for routing.
	EventType() string

	// Payload returns the event data for serialization.
	Payload() any
}

// ScopedEvent is an Event tied to a tenant and a subject entity.
// Sinks use the scope for partition and sort keys when it is available.
type ScopedEvent interface {
	Event
	Tenant() string
	Subject() string
}

// SnapshotArchive stores immutable lineage snapshots for history and audit.
type SnapshotArchive interface {
	// Put writes data under key. Existing keys are not overwritten.
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
