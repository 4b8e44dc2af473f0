package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/mocks"
)

func TestNewArchiveService_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewArchiveService(ArchiveServiceConfig{})
	})
}

func TestArchiveService_ExportLineage(t *testing.T) {
	f := newFixture(t, nil)
	v1 := f.begin(t, tenantA, nil)
	f.next(t, v1.ID)

	exportedAt := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	archive := mocks.NewMockSnapshotArchive(t)

	var written []byte

	expectedKey := "snapshots/tenant-a/" + v1.ID + "/1743494400000000000.json"
	archive.EXPECT().Put(mock.Anything, expectedKey, mock.Anything, "application/json").
		Run(func(_ context.Context, _ string, data []byte, _ string) { written = data }).
		Return(nil)

	svc := NewArchiveService(ArchiveServiceConfig{
		Revisions: f.svc,
		Archive:   archive,
		Prefix:    "snapshots",
		Clock:     fixedClock(exportedAt),
		Logger:    discardLogger(),
	})

	result, err := svc.ExportLineage(context.Background(), v1.ID, tenantA)
	require.NoError(t, err)

	assert.Equal(t, expectedKey, result.Key)
	assert.Equal(t, 2, result.Revisions)

	var snapshot LineageSnapshot
	require.NoError(t, json.Unmarshal(written, &snapshot))
	assert.Equal(t, v1.ID, snapshot.RootID)
	require.Len(t, snapshot.Revisions, 2)
	assert.Equal(t, 1, snapshot.Revisions[0].VersionNumber)
	assert.Equal(t, 2, snapshot.Revisions[1].VersionNumber)
	assert.Equal(t, "DRAFT", snapshot.Revisions[1].LifecycleStatus)
}

func TestArchiveService_ExportLineage_OtherTenant(t *testing.T) {
	f := newFixture(t, nil)
	v1 := f.begin(t, tenantA, nil)

	svc := NewArchiveService(ArchiveServiceConfig{
		Revisions: f.svc,
		Archive:   mocks.NewMockSnapshotArchive(t),
		Logger:    discardLogger(),
	})

	_, err := svc.ExportLineage(context.Background(), v1.ID, tenantB)

	require.Error(t, err)
	assert.True(t, domain.IsForbidden(err))
}

func TestArchiveService_ExportBundle(t *testing.T) {
	f := newFixture(t, nil)
	bundle := f.container(t, tenantA)
	a := f.begin(t, tenantA, &bundle.ID)
	b := f.begin(t, tenantA, &bundle.ID)
	f.next(t, a.ID)

	archive := mocks.NewMockSnapshotArchive(t)

	var (
		mu   sync.Mutex
		keys []string
	)

	archive.EXPECT().Put(mock.Anything, mock.Anything, mock.Anything, "application/json").
		Run(func(_ context.Context, key string, _ []byte, _ string) {
			mu.Lock()
			defer mu.Unlock()

			keys = append(keys, key)
		}).
		Return(nil).Times(2)

	svc := NewArchiveService(ArchiveServiceConfig{
		Revisions:   f.svc,
		Archive:     archive,
		Concurrency: 2,
		Logger:      discardLogger(),
	})

	results, err := svc.ExportBundle(context.Background(), bundle.ID, tenantA)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, a.ID, results[0].RootID)
	assert.Equal(t, 2, results[0].Revisions)
	assert.Equal(t, b.ID, results[1].RootID)
	assert.Len(t, keys, 2)

	for _, key := range keys {
		assert.True(t, strings.HasPrefix(key, "lineages/tenant-a/"), key)
	}
}

func TestArchiveService_ExportBundle_PropagatesArchiveFailure(t *testing.T) {
	f := newFixture(t, nil)
	bundle := f.container(t, tenantA)
	f.begin(t, tenantA, &bundle.ID)

	archive := mocks.NewMockSnapshotArchive(t)
	archive.EXPECT().Put(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied"))

	svc := NewArchiveService(ArchiveServiceConfig{Revisions: f.svc, Archive: archive, Logger: discardLogger()})

	_, err := svc.ExportBundle(context.Background(), bundle.ID, tenantA)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
