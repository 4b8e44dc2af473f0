package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

const (
	// ContextKeyTenant is the gin context key for the request's tenant ID.
	ContextKeyTenant = "tenant_id"

	defaultTenantHeader = "X-Tenant-ID"
)

// RequireTenant returns middleware that scopes the request to the tenant named
// in the tenant header. Requests without a tenant are rejected with 403.
//
// The tenant is also attached to the request context for the logger and for
// feature flag targeting. It must run after RequireAuth so that the flag user
// carries the subject.
func RequireTenant(cfg *config.AuthConfig) gin.HandlerFunc {
	header := defaultTenantHeader
	if cfg != nil && cfg.TenantHeader != "" {
		header = cfg.TenantHeader
	}

	return func(c *gin.Context) {
		tenantID := c.GetHeader(header)
		if tenantID == "" {
			abortWithForbidden(c, "tenant required")
			return
		}

		c.Set(ContextKeyTenant, tenantID)

		subject := ""
		if claims := GetClaims(c); claims != nil {
			subject = claims.Subject
		}

		ctx := ports.WithFeatureFlagUser(c.Request.Context(), &ports.FeatureFlagUser{
			ID:       subject,
			TenantID: tenantID,
		})
		ctx = logging.With(ctx, slog.String("tenant_id", tenantID), slog.String("user_id", subject))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenant returns the tenant ID set by RequireTenant, or an empty string.
func GetTenant(c *gin.Context) string {
	return c.GetString(ContextKeyTenant)
}
