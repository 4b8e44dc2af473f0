// Package flags provides feature flag providers.
package flags

import (
	"context"
	"strings"

	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// tenantSeparator splits a flag key into flag name and tenant, as in "strict-bundle-override@tenant-a".
const tenantSeparator = "@"

var _ ports.FeatureFlags = (*Static)(nil)

// Static evaluates flags from configuration. It is immutable after construction.
type Static struct {
	global  map[string]bool
	tenants map[string]map[string]bool
}

// NewStatic builds a provider from flag values keyed by name.
// Keys of the form "<flag>@<tenant>" override the flag for that tenant.
func NewStatic(values map[string]bool) *Static {
	s := &Static{
		global:  make(map[string]bool),
		tenants: make(map[string]map[string]bool),
	}

	for key, enabled := range values {
		name, tenant, scoped := strings.Cut(strings.ToLower(strings.TrimSpace(key)), tenantSeparator)
		if !scoped {
			s.global[name] = enabled

			continue
		}

		if s.tenants[tenant] == nil {
			s.tenants[tenant] = make(map[string]bool)
		}

		s.tenants[tenant][name] = enabled
	}

	return s
}

// IsEnabled implements ports.FeatureFlags. A tenant override wins over the global value.
func (s *Static) IsEnabled(ctx context.Context, flag string, defaultValue bool) bool {
	flag = strings.ToLower(flag)

	if user := ports.GetFeatureFlagUser(ctx); user != nil && user.TenantID != "" {
		if enabled, ok := s.tenants[strings.ToLower(user.TenantID)][flag]; ok {
			return enabled
		}
	}

	if enabled, ok := s.global[flag]; ok {
		return enabled
	}

	return defaultValue
}
