package middleware

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
)

// ContextKeyClaims is the gin context key for the caller's Claims.
const ContextKeyClaims = "claims"

const (
	// RoleQuoteAdmin may run every operation, including archive exports.
	RoleQuoteAdmin = "quote-admin"

	// ScopeExport grants lineage and bundle snapshot exports.
	ScopeExport = "quotes:export"
)

// Claims identify the caller. The API gateway verifies the token and forwards
// the claims as headers; this service trusts them as given.
type Claims struct {
	// Subject is recorded as the actor of every change.
	Subject string
	Roles   []string
	Scopes  []string
}

func (c *Claims) HasRole(role string) bool   { return slices.Contains(c.Roles, role) }
func (c *Claims) HasScope(scope string) bool { return slices.Contains(c.Scopes, scope) }

// claimHeaders names the gateway headers, falling back to the gateway defaults.
type claimHeaders struct {
	subject, roles, scopes string
}

func headersFor(cfg *config.AuthConfig) claimHeaders {
	h := claimHeaders{subject: "X-User-ID", roles: "X-User-Roles", scopes: "X-User-Scopes"}
	if cfg == nil {
		return h
	}

	h.subject = cmp.Or(cfg.SubjectHeader, h.subject)
	h.roles = cmp.Or(cfg.RolesHeader, h.roles)
	h.scopes = cmp.Or(cfg.ScopesHeader, h.scopes)

	return h
}

func (h claimHeaders) extract(c *gin.Context) *Claims {
	claims := &Claims{Subject: c.GetHeader(h.subject)}

	// Roles are comma separated, scopes space separated as in OAuth2.
	for role := range strings.SplitSeq(c.GetHeader(h.roles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			claims.Roles = append(claims.Roles, role)
		}
	}

	if scopes := strings.Fields(c.GetHeader(h.scopes)); len(scopes) > 0 {
		claims.Scopes = scopes
	}

	return claims
}

// ExtractClaims reads the caller's claims from the request headers.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	return headersFor(cfg).extract(c)
}

// GetClaims returns the claims stored by RequireAuth or RequireAny, or nil.
func GetClaims(c *gin.Context) *Claims {
	claims, _ := c.Value(ContextKeyClaims).(*Claims)
	return claims
}

// RequireAuth rejects requests without a subject with 403.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	headers := headersFor(cfg)

	return func(c *gin.Context) {
		claims := headers.extract(c)
		if claims.Subject == "" {
			abortWithForbidden(c, "authentication required")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAny passes the request on when at least one check accepts the
// caller's claims.
func RequireAny(cfg *config.AuthConfig, checks ...func(*Claims) bool) gin.HandlerFunc {
	headers := headersFor(cfg)

	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			claims = headers.extract(c)
			c.Set(ContextKeyClaims, claims)
		}

		if slices.ContainsFunc(checks, func(check func(*Claims) bool) bool { return check(claims) }) {
			c.Next()
			return
		}

		abortWithForbidden(c, "insufficient permissions")
	}
}

// RequireExport admits quote admins and callers holding the export scope.
func RequireExport(cfg *config.AuthConfig) gin.HandlerFunc {
	return RequireAny(cfg,
		func(c *Claims) bool { return c.HasRole(RoleQuoteAdmin) },
		func(c *Claims) bool { return c.HasScope(ScopeExport) },
	)
}

func abortWithForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden,
		dto.NewErrorResponse(dto.ErrorCodeForbidden, message).WithTraceID(dto.GetTraceID(c)))
}
