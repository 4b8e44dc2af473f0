package dto

import (
	"encoding/json"
	"time"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

// BeginLineageRequest is the body of POST /quotes.
// RootID and VersionNumber are accepted only so that the service can reject them.
type BeginLineageRequest struct {
	CustomerID     string          `json:"customerId"     validate:"required,notempty,max=128"`
	BundleID       *string         `json:"bundleId"       validate:"omitempty,notempty"`
	QuoteNo        string          `json:"quoteNo"        validate:"max=64"`
	Title          string          `json:"title"          validate:"max=256"`
	Notes          string          `json:"notes"          validate:"max=4096"`
	ValidUntil     *time.Time      `json:"validUntil"`
	TotalAmount    string          `json:"totalAmount"    validate:"decimal"`
	FinalAmount    string          `json:"finalAmount"    validate:"decimal"`
	DiscountAmount string          `json:"discountAmount" validate:"decimal"`
	Items          json.RawMessage `json:"items"`
	RootID         string          `json:"rootId"`
	VersionNumber  int             `json:"versionNumber"`
}

// ToSeed converts the request into a seed for tenantID.
func (r *BeginLineageRequest) ToSeed(tenantID string) *domain.RevisionSeed {
	return &domain.RevisionSeed{
		TenantID:       tenantID,
		CustomerID:     r.CustomerID,
		BundleID:       r.BundleID,
		QuoteNo:        r.QuoteNo,
		Title:          r.Title,
		Notes:          r.Notes,
		ValidUntil:     r.ValidUntil,
		TotalAmount:    domain.Decimal(r.TotalAmount),
		FinalAmount:    domain.Decimal(r.FinalAmount),
		DiscountAmount: domain.Decimal(r.DiscountAmount),
		Items:          r.Items,
		RootID:         r.RootID,
		VersionNumber:  r.VersionNumber,
	}
}

// CreateBundleRequest is the body of POST /bundles. A container needs no
// customer; a bundleId is accepted only so that nesting can be rejected.
type CreateBundleRequest struct {
	CustomerID string          `json:"customerId" validate:"omitempty,notempty,max=128"`
	BundleID   *string         `json:"bundleId"   validate:"omitempty,notempty"`
	QuoteNo    string          `json:"quoteNo"    validate:"max=64"`
	Title      string          `json:"title"      validate:"max=256"`
	Notes      string          `json:"notes"      validate:"max=4096"`
	ValidUntil *time.Time      `json:"validUntil"`
	Items      json.RawMessage `json:"items"`
}

// ToSeed converts the request into a container seed for tenantID.
func (r *CreateBundleRequest) ToSeed(tenantID string) *domain.RevisionSeed {
	return &domain.RevisionSeed{
		TenantID:          tenantID,
		CustomerID:        r.CustomerID,
		BundleID:          r.BundleID,
		IsBundleContainer: true,
		QuoteNo:           r.QuoteNo,
		Title:             r.Title,
		Notes:             r.Notes,
		ValidUntil:        r.ValidUntil,
		Items:             r.Items,
	}
}

// NextVersionRequest is the body of POST /quotes/:id/versions. Absent fields
// keep the prior revision's value.
type NextVersionRequest struct {
	TotalAmount    *string         `json:"totalAmount"    validate:"omitempty,decimal"`
	FinalAmount    *string         `json:"finalAmount"    validate:"omitempty,decimal"`
	DiscountAmount *string         `json:"discountAmount" validate:"omitempty,decimal"`
	Items          json.RawMessage `json:"items"`
	Title          *string         `json:"title"          validate:"omitempty,max=256"`
	Notes          *string         `json:"notes"          validate:"omitempty,max=4096"`
	ValidUntil     *time.Time      `json:"validUntil"`
	BundleID       *string         `json:"bundleId"`
}

// ToOverrides converts the request into revision overrides.
func (r *NextVersionRequest) ToOverrides() *domain.RevisionOverrides {
	return &domain.RevisionOverrides{
		TotalAmount:    decimalPtr(r.TotalAmount),
		FinalAmount:    decimalPtr(r.FinalAmount),
		DiscountAmount: decimalPtr(r.DiscountAmount),
		Items:          r.Items,
		Title:          r.Title,
		Notes:          r.Notes,
		ValidUntil:     r.ValidUntil,
		BundleID:       r.BundleID,
	}
}

// CloseVersionRequest is the body of POST /quotes/:id/close.
type CloseVersionRequest struct {
	Status string `json:"status" validate:"required,terminal"`
}

// RevisionResponse is the HTTP representation of a quote revision.
type RevisionResponse struct {
	ID                string          `json:"id"`
	RootID            string          `json:"rootId"`
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

// NewRevisionResponse converts a domain revision. The tenant is implied by the request and omitted.
func NewRevisionResponse(rev *domain.QuoteRevision) *RevisionResponse {
	return &RevisionResponse{
		ID:                rev.ID,
		RootID:            rev.RootID,
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

// LineageResponse lists a lineage in version order.
type LineageResponse struct {
	RootID    string              `json:"rootId"`
	ActiveID  string              `json:"activeId,omitempty"`
	Revisions []*RevisionResponse `json:"revisions"`
}

// NewLineageResponse converts a lineage. It must not be empty.
func NewLineageResponse(lineage domain.Lineage) *LineageResponse {
	resp := &LineageResponse{
		RootID:    lineage[0].RootID,
		Revisions: make([]*RevisionResponse, 0, len(lineage)),
	}

	if active := lineage.Active(); active != nil {
		resp.ActiveID = active.ID
	}

	for _, rev := range lineage {
		resp.Revisions = append(resp.Revisions, NewRevisionResponse(rev))
	}

	return resp
}

// BundleResponse lists the member lineages of a bundle container.
type BundleResponse struct {
	BundleID string             `json:"bundleId"`
	Lineages []*LineageResponse `json:"lineages"`
}

// NewBundleResponse converts bundle members grouped by lineage.
func NewBundleResponse(bundleID string, lineages []domain.Lineage) *BundleResponse {
	resp := &BundleResponse{
		BundleID: bundleID,
		Lineages: make([]*LineageResponse, 0, len(lineages)),
	}

	for _, lineage := range lineages {
		if len(lineage) == 0 {
			continue
		}

		resp.Lineages = append(resp.Lineages, NewLineageResponse(lineage))
	}

	return resp
}

// ExportResponse reports the snapshots written by an export.
type ExportResponse struct {
	Snapshots []SnapshotRef `json:"snapshots"`
}

// SnapshotRef identifies one archived lineage snapshot.
type SnapshotRef struct {
	Key       string `json:"key"`
	RootID    string `json:"rootId"`
	Revisions int    `json:"revisions"`
}

func decimalPtr(s *string) *domain.Decimal {
	if s == nil {
		return nil
	}

	d := domain.Decimal(*s)

	return &d
}
