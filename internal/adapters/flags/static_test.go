package flags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

func TestStatic_IsEnabled(t *testing.T) {
	flags := NewStatic(map[string]bool{
		"strict-bundle-override":          false,
		"strict-bundle-override@Tenant-B": true,
		"export-enabled":                  true,
	})

	tenantB := ports.WithFeatureFlagUser(context.Background(), &ports.FeatureFlagUser{ID: "u1", TenantID: "tenant-b"})
	tenantA := ports.WithFeatureFlagUser(context.Background(), &ports.FeatureFlagUser{ID: "u1", TenantID: "tenant-a"})

	tests := []struct {
		name         string
		ctx          context.Context
		flag         string
		defaultValue bool
		want         bool
	}{
		{name: "global value", ctx: context.Background(), flag: "export-enabled", want: true},
		{name: "global false beats default", ctx: context.Background(), flag: "strict-bundle-override", defaultValue: true, want: false},
		{name: "tenant override", ctx: tenantB, flag: ports.FlagStrictBundleOverride, want: true},
		{name: "other tenant falls back to global", ctx: tenantA, flag: ports.FlagStrictBundleOverride, defaultValue: true, want: false},
		{name: "unknown flag uses default", ctx: tenantB, flag: "unknown", defaultValue: true, want: true},
		{name: "case insensitive", ctx: context.Background(), flag: "EXPORT-ENABLED", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flags.IsEnabled(tt.ctx, tt.flag, tt.defaultValue))
		})
	}
}

func TestStatic_Empty(t *testing.T) {
	flags := NewStatic(nil)

	assert.True(t, flags.IsEnabled(context.Background(), "anything", true))
	assert.False(t, flags.IsEnabled(context.Background(), "anything", false))
}
