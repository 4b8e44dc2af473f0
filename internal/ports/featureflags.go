package ports

import (
	"context"
)

// Feature flag names evaluated by the application layer.
const (
	// FlagStrictBundleOverride rejects next-version payloads that carry a bundle ID
	// instead of silently ignoring the field.
	FlagStrictBundleOverride = "strict-bundle-override"
)

// FeatureFlags defines the contract for feature flag evaluation.
// This port allows the application to check feature enablement without
// knowing the underlying provider (static config, LaunchDarkly, Unleash, etc.).
//
// Example usage:
//
//	if flags.IsEnabled(ctx, ports.FlagStrictBundleOverride, false) {
//	    return domain.NewInvalidInputError("bundleId", "cannot be changed")
//	}
type FeatureFlags interface {
	// IsEnabled checks if a boolean feature flag is enabled.
	// Returns defaultValue if the flag doesn't exist or evaluation fails.
	// The context may carry a FeatureFlagUser for tenant targeting.
	IsEnabled(ctx context.Context, flag string, defaultValue bool) bool
}

// FeatureFlagUser represents the caller for targeted flag evaluation.
type FeatureFlagUser struct {
	// ID is the acting user identifier.
	ID string

	// TenantID is the tenant the request is scoped to.
	TenantID string

	// Attributes contains custom attributes for targeting rules.
	Attributes map[string]any
}

type featureFlagUserKey struct{}

// FeatureFlagUserKey is used to store/retrieve FeatureFlagUser from context.
var FeatureFlagUserKey = featureFlagUserKey{}

// WithFeatureFlagUser adds user context for feature flag evaluation.
func WithFeatureFlagUser(ctx context.Context, user *FeatureFlagUser) context.Context {
	return context.WithValue(ctx, FeatureFlagUserKey, user)
}

// GetFeatureFlagUser retrieves the user from context, or nil if not present.
func GetFeatureFlagUser(ctx context.Context) *FeatureFlagUser {
	if user, ok := ctx.Value(FeatureFlagUserKey).(*FeatureFlagUser); ok {
		return user
	}

	return nil
}
