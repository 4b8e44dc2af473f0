// Package memory provides an in-process revision store.
//
// Writes are buffered per transaction and applied atomically at commit, where the
// uniqueness constraints of the SQL stores are checked: one row per
// (root, version), one quote number per tenant and one active row per lineage.
// Lineage locks are held until the transaction ends.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// Compile-time interface checks.
var (
	_ ports.RevisionStore = (*Store)(nil)
	_ ports.RevisionTx    = (*tx)(nil)
)

// Store keeps revisions in a map.
type Store struct {
	mu        sync.RWMutex
	revisions map[string]*domain.QuoteRevision

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	closed bool
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		revisions: make(map[string]*domain.QuoteRevision),
		locks:     make(map[string]chan struct{}),
	}
}

// WithinTx implements ports.RevisionStore.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.RevisionTx) error) error {
	if err := s.Ping(ctx); err != nil {
		return err
	}

	t := &tx{
		store:   s,
		pending: make(map[string]*domain.QuoteRevision),
	}
	// Locks are released after commit, including when fn panics.
	defer t.release()

	if err := fn(ctx, t); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	return s.commit(t)
}

// Ping implements ports.RevisionStore.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return domain.NewUnavailableError("revision store", "store is closed")
	}

	return nil
}

// Close implements ports.RevisionStore.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Len returns the number of committed revisions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.revisions)
}

// commit validates the buffered writes against the committed state and applies them.
func (s *Store) commit(t *tx) error {
	if len(t.pending) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]*domain.QuoteRevision, len(s.revisions)+len(t.pending))
	for id, rev := range s.revisions {
		merged[id] = rev
	}

	for _, id := range t.inserted {
		if _, exists := s.revisions[id]; exists {
			return domain.NewConflictErrorWithDetails("quote revision", "duplicate id", id)
		}
	}

	for id, rev := range t.pending {
		merged[id] = rev
	}

	if err := checkConstraints(merged, t.pending); err != nil {
		return err
	}

	for id, rev := range t.pending {
		s.revisions[id] = rev
	}

	return nil
}

// checkConstraints verifies the unique keys touched by the changed rows.
func checkConstraints(all, changed map[string]*domain.QuoteRevision) error {
	for _, rev := range changed {
		for _, other := range all {
			if other.ID == rev.ID {
				continue
			}

			if other.RootID == rev.RootID && other.VersionNumber == rev.VersionNumber {
				return domain.NewConflictErrorWithDetails("quote revision", "version already exists",
					fmt.Sprintf("root=%s version=%d", rev.RootID, rev.VersionNumber))
			}

			if other.TenantID == rev.TenantID && other.QuoteNo == rev.QuoteNo {
				return domain.NewConflictErrorWithDetails("quote revision", "quote number already exists", rev.QuoteNo)
			}

			if rev.IsActive && other.IsActive && other.RootID == rev.RootID {
				return domain.NewConflictErrorWithDetails("quote revision", "lineage already has an active revision", rev.RootID)
			}
		}
	}

	return nil
}

// acquire blocks until the lineage lock is free or ctx is done.
func (s *Store) acquire(ctx context.Context, key string) (chan struct{}, error) {
	s.locksMu.Lock()

	lock, ok := s.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[key] = lock
	}

	s.locksMu.Unlock()

	select {
	case lock <- struct{}{}:
		return lock, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for lineage lock %s: %w", key, ctx.Err())
	}
}

// tx buffers writes until commit. It is not safe for concurrent use.
type tx struct {
	store    *Store
	pending  map[string]*domain.QuoteRevision
	inserted []string
	held     []chan struct{}
	released bool
}

func (t *tx) release() {
	if t.released {
		return
	}

	t.released = true

	for _, lock := range t.held {
		<-lock
	}

	t.held = nil
}

func (t *tx) lookup(id string) (*domain.QuoteRevision, bool) {
	if rev, ok := t.pending[id]; ok {
		return rev, true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	rev, ok := t.store.revisions[id]

	return rev, ok
}

// snapshot returns the committed rows matching keep, overlaid with pending rows.
func (t *tx) snapshot(keep func(*domain.QuoteRevision) bool) []*domain.QuoteRevision {
	t.store.mu.RLock()

	result := make([]*domain.QuoteRevision, 0)

	for id, rev := range t.store.revisions {
		if _, overridden := t.pending[id]; overridden {
			continue
		}

		if keep(rev) {
			result = append(result, rev.Clone())
		}
	}

	t.store.mu.RUnlock()

	for _, rev := range t.pending {
		if keep(rev) {
			result = append(result, rev.Clone())
		}
	}

	return result
}

func (t *tx) GetRevision(_ context.Context, id string) (*domain.QuoteRevision, error) {
	rev, ok := t.lookup(id)
	if !ok {
		return nil, domain.NewNotFoundError("quote revision", id)
	}

	return rev.Clone(), nil
}

func (t *tx) LockLineage(ctx context.Context, tenantID, rootID string) error {
	key := tenantID + "/" + rootID

	lock, err := t.store.acquire(ctx, key)
	if err != nil {
		return err
	}

	t.held = append(t.held, lock)

	return nil
}

func (t *tx) MaxVersion(_ context.Context, rootID string) (int, error) {
	maxVersion := 0

	for _, rev := range t.snapshot(func(r *domain.QuoteRevision) bool { return r.RootID == rootID }) {
		maxVersion = max(maxVersion, rev.VersionNumber)
	}

	return maxVersion, nil
}

func (t *tx) ListLineage(_ context.Context, rootID string) (domain.Lineage, error) {
	lineage := domain.Lineage(t.snapshot(func(r *domain.QuoteRevision) bool { return r.RootID == rootID }))
	lineage.Sort()

	return lineage, nil
}

func (t *tx) ListBundleMembers(_ context.Context, bundleID string) ([]*domain.QuoteRevision, error) {
	members := t.snapshot(func(r *domain.QuoteRevision) bool { return r.BundleID != nil && *r.BundleID == bundleID })

	slices.SortFunc(members, func(a, b *domain.QuoteRevision) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return members, nil
}

func (t *tx) InsertRevision(_ context.Context, rev *domain.QuoteRevision) error {
	if _, exists := t.lookup(rev.ID); exists {
		return domain.NewConflictErrorWithDetails("quote revision", "duplicate id", rev.ID)
	}

	t.pending[rev.ID] = rev.Clone()
	t.inserted = append(t.inserted, rev.ID)

	return nil
}

func (t *tx) UpdateState(_ context.Context, id string, isActive bool, status domain.LifecycleStatus, updatedAt time.Time) error {
	current, ok := t.lookup(id)
	if !ok {
		return domain.NewNotFoundError("quote revision", id)
	}

	updated := current.Clone()
	updated.IsActive = isActive
	updated.LifecycleStatus = status
	updated.UpdatedAt = updatedAt

	t.pending[id] = updated

	return nil
}
