package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/store/memory"
	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	return cfg
}

func TestBuild_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	c, err := Build(context.Background(), cfg, discardLogger(), Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.Revisions)
	assert.Nil(t, c.Archive, "the archive is off by default")

	result := c.Health.CheckAll(context.Background())
	require.Contains(t, result.Checks, "store:memory")

	rev, err := c.Revisions.BeginLineage(context.Background(), &domain.RevisionSeed{
		TenantID:   "tenant-a",
		CustomerID: "cust-1",
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, rev.VersionNumber)
}

func TestBuild_ArchiveAndDynamoDB(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.AWS = config.AWSConfig{
		Region:          "eu-west-1",
		Endpoint:        "http://localhost:4566",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}
	cfg.Audit.Driver = AuditDriverDynamoDB
	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = "quote-archive"
	cfg.Archive.PathStyle = true

	c, err := Build(context.Background(), cfg, discardLogger(), Options{Store: memory.NewStore()})
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Archive)
}

func TestBuild_AuditNone(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Audit.Driver = AuditDriverNone

	c, err := Build(context.Background(), cfg, discardLogger(), Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.Revisions)
}

func TestBuild_UnknownAuditDriverClosesStore(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Audit.Driver = "kafka"

	s := memory.NewStore()

	_, err := Build(context.Background(), cfg, discardLogger(), Options{Store: s})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")

	assert.True(t, domain.IsUnavailable(s.Ping(context.Background())), "store is closed on failure")
}

func TestBuild_UnknownStoreDriver(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Store.Driver = "oracle"

	_, err := Build(context.Background(), cfg, discardLogger(), Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening store")
}
