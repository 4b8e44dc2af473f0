package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLifecycleStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   LifecycleStatus
		terminal bool
	}{
		{StatusDraft, false},
		{StatusActive, false},
		{StatusAccepted, true},
		{StatusRejected, true},
		{StatusExpired, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.True(t, tt.status.IsValid())
		})
	}
}

func TestParseLifecycleStatus(t *testing.T) {
	status, err := ParseLifecycleStatus("ACCEPTED")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)

	_, err = ParseLifecycleStatus("presented")
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}

func TestQuoteRevision_Clone(t *testing.T) {
	valid := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := &QuoteRevision{
		ID:         "r-1",
		RootID:     "r-1",
		BundleID:   strPtr("b-1"),
		ParentID:   strPtr("p-1"),
		ValidUntil: &valid,
		Items:      json.RawMessage(`[{"sku":"curtain"}]`),
	}

	c := orig.Clone()
	require.Equal(t, orig, c)

	*c.BundleID = "b-2"
	*c.ParentID = "p-2"
	c.Items[2] = 'X'
	later := valid.Add(time.Hour)
	c.ValidUntil = &later

	assert.Equal(t, "b-1", *orig.BundleID)
	assert.Equal(t, "p-1", *orig.ParentID)
	assert.JSONEq(t, `[{"sku":"curtain"}]`, string(orig.Items))
	assert.Equal(t, valid, *orig.ValidUntil)

	var nilRev *QuoteRevision
	assert.Nil(t, nilRev.Clone())
}

func TestQuoteRevision_Helpers(t *testing.T) {
	root := &QuoteRevision{ID: "a", RootID: "a"}
	child := &QuoteRevision{ID: "b", RootID: "a", BundleID: strPtr("bundle")}

	assert.True(t, root.IsRoot())
	assert.False(t, child.IsRoot())
	assert.Empty(t, root.BundleRef())
	assert.Equal(t, "bundle", child.BundleRef())
}

func TestRevisionOverrides_Apply(t *testing.T) {
	total := Decimal("1200.50")
	title := "Living room v2"
	rev := &QuoteRevision{
		TotalAmount:    "1000.00",
		FinalAmount:    "950.00",
		DiscountAmount: "50.00",
		Title:          "Living room",
		Notes:          "first pass",
		BundleID:       strPtr("b-1"),
	}

	overrides := &RevisionOverrides{
		TotalAmount: &total,
		Title:       &title,
		Items:       json.RawMessage(`{"rooms":2}`),
		BundleID:    strPtr("b-other"),
	}
	overrides.Apply(rev)

	assert.Equal(t, Decimal("1200.50"), rev.TotalAmount)
	assert.Equal(t, Decimal("950.00"), rev.FinalAmount)
	assert.Equal(t, Decimal("50.00"), rev.DiscountAmount)
	assert.Equal(t, "Living room v2", rev.Title)
	assert.Equal(t, "first pass", rev.Notes)
	assert.JSONEq(t, `{"rooms":2}`, string(rev.Items))
	assert.Equal(t, "b-1", *rev.BundleID, "bundle overrides are never applied")

	var none *RevisionOverrides
	assert.NotPanics(t, func() { none.Apply(rev) })
}

func TestVersionQuoteNo(t *testing.T) {
	assert.Equal(t, "QT1700000000-V3", VersionQuoteNo("QT1700000000", 3))
}

func TestLineage(t *testing.T) {
	lineage := Lineage{
		{ID: "v3", VersionNumber: 3},
		{ID: "v1", VersionNumber: 1},
		{ID: "v2", VersionNumber: 2, IsActive: true},
	}

	assert.Equal(t, "v2", lineage.Active().ID)
	assert.Equal(t, "v3", lineage.Latest().ID)

	lineage.Sort()
	assert.Equal(t, []int{1, 2, 3}, []int{
		lineage[0].VersionNumber, lineage[1].VersionNumber, lineage[2].VersionNumber,
	})

	assert.Nil(t, Lineage{}.Active())
	assert.Nil(t, Lineage{}.Latest())
}
