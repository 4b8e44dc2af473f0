// Package store holds what the revision store adapters share.
package store

import (
	"context"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

var _ ports.HealthChecker = (*HealthChecker)(nil)

// HealthChecker reports a revision store's reachability to the health registry.
type HealthChecker struct {
	name  string
	store ports.RevisionStore
}

// NewHealthChecker creates a checker named after the store driver.
func NewHealthChecker(name string, store ports.RevisionStore) *HealthChecker {
	return &HealthChecker{name: "store:" + name, store: store}
}

// Name implements ports.HealthChecker.
func (h *HealthChecker) Name() string { return h.name }

// Check implements ports.HealthChecker.
func (h *HealthChecker) Check(ctx context.Context) error {
	return h.store.Ping(ctx)
}
