package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

const (
	// DefaultArchivePrefix is the key prefix of lineage snapshots.
	DefaultArchivePrefix = "lineages"

	// DefaultArchiveConcurrency bounds the parallel exports of a bundle.
	DefaultArchiveConcurrency = 4

	snapshotContentType = "application/json"
)

// ArchiveService writes lineage snapshots for history views and audit.
type ArchiveService struct {
	revisions   *RevisionService
	archive     ports.SnapshotArchive
	prefix      string
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// ArchiveServiceConfig contains dependencies for the archive service.
type ArchiveServiceConfig struct {
	Revisions   *RevisionService
	Archive     ports.SnapshotArchive
	Prefix      string
	Concurrency int
	Clock       func() time.Time
	Logger      *slog.Logger
}

// NewArchiveService creates an archive service.
// Panics if Revisions or Archive is nil.
func NewArchiveService(cfg ArchiveServiceConfig) *ArchiveService {
	if cfg.Revisions == nil || cfg.Archive == nil {
		panic("app: ArchiveServiceConfig requires Revisions and Archive")
	}

	s := &ArchiveService{
		revisions:   cfg.Revisions,
		archive:     cfg.Archive,
		prefix:      cfg.Prefix,
		concurrency: cfg.Concurrency,
		now:         cfg.Clock,
		logger:      cfg.Logger,
	}

	if s.prefix == "" {
		s.prefix = DefaultArchivePrefix
	}

	if s.concurrency <= 0 {
		s.concurrency = DefaultArchiveConcurrency
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// ExportResult describes one written snapshot.
type ExportResult struct {
	Key       string
	RootID    string
	Revisions int
}

// LineageSnapshot is the archived document of one lineage.
type LineageSnapshot struct {
	TenantID   string             `json:"tenantId"`
	RootID     string             `json:"rootId"`
	ExportedAt time.Time          `json:"exportedAt"`
	Revisions  []RevisionSnapshot `json:"revisions"`
}

// RevisionSnapshot is one revision inside a LineageSnapshot.
type RevisionSnapshot struct {
	ID                string          `json:"id"`
	ParentID          *string         `json:"parentId,omitempty"`
	VersionNumber     int             `json:"versionNumber"`
	BundleID          *string         `json:"bundleId,omitempty"`
	IsBundleContainer bool            `json:"isBundleContainer"`
	IsActive          bool            `json:"isActive"`
	LifecycleStatus   string          `json:"lifecycleStatus"`
	QuoteNo           string          `json:"quoteNo"`
	Title             string          `json:"title,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	ValidUntil        *time.Time      `json:"validUntil,omitempty"`
	TotalAmount       string          `json:"totalAmount"`
	FinalAmount       string          `json:"finalAmount"`
	DiscountAmount    string          `json:"discountAmount"`
	Items             json.RawMessage `json:"items,omitempty"`
	CustomerID        string          `json:"customerId"`
	CreatedBy         string          `json:"createdBy"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ExportLineage writes the lineage containing rootID as one JSON snapshot.
func (s *ArchiveService) ExportLineage(ctx context.Context, rootID, tenantID string) (*ExportResult, error) {
	lineage, err := s.revisions.ListLineage(ctx, rootID, tenantID)
	if err != nil {
		return nil, err
	}

	return s.write(ctx, tenantID, lineage)
}

// ExportBundle writes one snapshot per member lineage of a bundle.
// Lineages are exported in parallel; the first failure cancels the rest.
func (s *ArchiveService) ExportBundle(ctx context.Context, bundleID, tenantID string) ([]*ExportResult, error) {
	lineages, err := s.revisions.ListBundle(ctx, bundleID, tenantID)
	if err != nil {
		return nil, err
	}

	fns := make([]func(context.Context) (*ExportResult, error), 0, len(lineages))
	for _, lineage := range lineages {
		fns = append(fns, func(ctx context.Context) (*ExportResult, error) {
			return s.write(ctx, tenantID, lineage)
		})
	}

	results, err := ParallelLimit(ctx, s.concurrency, fns...)
	if err != nil {
		return nil, fmt.Errorf("exporting bundle %s: %w", bundleID, err)
	}

	return results, nil
}

func (s *ArchiveService) write(ctx context.Context, tenantID string, lineage domain.Lineage) (*ExportResult, error) {
	if len(lineage) == 0 {
		return nil, domain.NewNotFoundError("lineage", "")
	}

	rootID := lineage[0].RootID
	exportedAt := s.now().UTC()

	snapshot := LineageSnapshot{
		TenantID:   tenantID,
		RootID:     rootID,
		ExportedAt: exportedAt,
		Revisions:  make([]RevisionSnapshot, 0, len(lineage)),
	}

	for _, rev := range lineage {
		snapshot.Revisions = append(snapshot.Revisions, toRevisionSnapshot(rev))
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot of lineage %s: %w", rootID, err)
	}

	key := path.Join(s.prefix, tenantID, rootID, strconv.FormatInt(exportedAt.UnixNano(), 10)+".json")

	if err := s.archive.Put(ctx, key, data, snapshotContentType); err != nil {
		return nil, fmt.Errorf("writing snapshot %s: %w", key, err)
	}

	logging.FromContextOr(ctx, s.logger).InfoContext(ctx, "lineage snapshot written",
		slog.String("component", "archive_service"),
		slog.String("key", key),
		slog.Int("revisions", len(lineage)),
	)

	return &ExportResult{Key: key, RootID: rootID, Revisions: len(lineage)}, nil
}

func toRevisionSnapshot(rev *domain.QuoteRevision) RevisionSnapshot {
	return RevisionSnapshot{
		ID:                rev.ID,
		ParentID:          rev.ParentID,
		VersionNumber:     rev.VersionNumber,
		BundleID:          rev.BundleID,
		IsBundleContainer: rev.IsBundleContainer,
		IsActive:          rev.IsActive,
		LifecycleStatus:   string(rev.LifecycleStatus),
		QuoteNo:           rev.QuoteNo,
		Title:             rev.Title,
		Notes:             rev.Notes,
		ValidUntil:        rev.ValidUntil,
		TotalAmount:       string(rev.TotalAmount),
		FinalAmount:       string(rev.FinalAmount),
		DiscountAmount:    string(rev.DiscountAmount),
		Items:             rev.Items,
		CustomerID:        rev.CustomerID,
		CreatedBy:         rev.CreatedBy,
		CreatedAt:         rev.CreatedAt,
		UpdatedAt:         rev.UpdatedAt,
	}
}
