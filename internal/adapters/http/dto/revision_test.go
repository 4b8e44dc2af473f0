package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
)

func TestBeginLineageRequest_ToSeed(t *testing.T) {
	bundleID := "bundle-1"
	validUntil := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	req := &BeginLineageRequest{
		CustomerID:     "cust-1",
		BundleID:       &bundleID,
		Title:          "Cold room",
		ValidUntil:     &validUntil,
		TotalAmount:    "1500.00",
		FinalAmount:    "1425.50",
		DiscountAmount: "74.50",
		Items:          json.RawMessage(`[{"sku":"CR-2"}]`),
	}

	seed := req.ToSeed("tenant-a")

	assert.Equal(t, "tenant-a", seed.TenantID)
	assert.Equal(t, "cust-1", seed.CustomerID)
	assert.Equal(t, &bundleID, seed.BundleID)
	assert.Equal(t, domain.Decimal("1425.50"), seed.FinalAmount)
	assert.Equal(t, &validUntil, seed.ValidUntil)
	assert.JSONEq(t, `[{"sku":"CR-2"}]`, string(seed.Items))
	assert.False(t, seed.IsBundleContainer)
	assert.Empty(t, seed.RootID)
	assert.Zero(t, seed.VersionNumber)
}

func TestNextVersionRequest_ToOverrides(t *testing.T) {
	total := "99.90"
	title := "Revised"

	overrides := (&NextVersionRequest{TotalAmount: &total, Title: &title}).ToOverrides()

	require.NotNil(t, overrides.TotalAmount)
	assert.Equal(t, domain.Decimal("99.90"), *overrides.TotalAmount)
	assert.Equal(t, &title, overrides.Title)
	assert.Nil(t, overrides.FinalAmount)
	assert.Nil(t, overrides.DiscountAmount)
	assert.Nil(t, overrides.BundleID)
	assert.Nil(t, overrides.Items)
}

func TestNewLineageResponse(t *testing.T) {
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	rootID := "v1"

	lineage := domain.Lineage{
		{ID: "v1", RootID: rootID, VersionNumber: 1, LifecycleStatus: domain.StatusDraft, CreatedAt: created},
		{ID: "v2", RootID: rootID, ParentID: &rootID, VersionNumber: 2, IsActive: true, LifecycleStatus: domain.StatusActive, CreatedAt: created},
	}

	resp := NewLineageResponse(lineage)

	assert.Equal(t, rootID, resp.RootID)
	assert.Equal(t, "v2", resp.ActiveID)
	require.Len(t, resp.Revisions, 2)
	assert.Equal(t, "ACTIVE", resp.Revisions[1].LifecycleStatus)

	body, err := json.Marshal(resp.Revisions[0])
	require.NoError(t, err)
	assert.NotContains(t, string(body), "tenant", "the tenant is implied by the request")
	assert.NotContains(t, string(body), "parentId", "a root has no parent")
}

func TestNewLineageResponse_NoActiveRevision(t *testing.T) {
	resp := NewLineageResponse(domain.Lineage{{ID: "v1", RootID: "v1", VersionNumber: 1}})

	assert.Empty(t, resp.ActiveID)
}

func TestNewBundleResponse_SkipsEmptyLineages(t *testing.T) {
	lineages := []domain.Lineage{
		{{ID: "a1", RootID: "a1", VersionNumber: 1}},
		{},
		{{ID: "b1", RootID: "b1", VersionNumber: 1}, {ID: "b2", RootID: "b1", VersionNumber: 2}},
	}

	resp := NewBundleResponse("bundle-1", lineages)

	assert.Equal(t, "bundle-1", resp.BundleID)
	require.Len(t, resp.Lineages, 2)
	assert.Equal(t, "b1", resp.Lineages[1].RootID)
	assert.Len(t, resp.Lineages[1].Revisions, 2)
}

func TestCloseVersionRequest_Validation(t *testing.T) {
	assert.NoError(t, Validate(&CloseVersionRequest{Status: "REJECTED"}))
	assert.ErrorIs(t, Validate(&CloseVersionRequest{}), ErrValidation)
	assert.ErrorIs(t, Validate(&CloseVersionRequest{Status: "ACTIVE"}), ErrValidation)
}
