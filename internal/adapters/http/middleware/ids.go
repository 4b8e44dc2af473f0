// Package middleware provides the gin middleware of the quote revision API.
package middleware

import (
	"log/slog"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

const (
	// HeaderRequestID carries the per-request identifier.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID carries the identifier of the business transaction a
	// request belongs to. It is stored on every audit event the request causes.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key of the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key of the correlation ID.
	ContextKeyCorrelationID = "correlation_id"

	// maxIDLength bounds caller supplied IDs before they reach logs and the audit table.
	maxIDLength = 128
)

// RequestID returns middleware that assigns the request an ID. A well-formed
// X-Request-ID header is reused, anything else is replaced with a UUID.
func RequestID() gin.HandlerFunc {
	return propagateID(HeaderRequestID, ContextKeyRequestID,
		func(info *ports.RequestInfo, id string) { info.RequestID = id },
		nil,
	)
}

// CorrelationID returns middleware that assigns the request a correlation ID.
// Without an X-Correlation-ID header the request ID is used, so a single call
// can still be joined to its audit events. It must run after RequestID.
func CorrelationID() gin.HandlerFunc {
	return propagateID(HeaderCorrelationID, ContextKeyCorrelationID,
		func(info *ports.RequestInfo, id string) { info.CorrelationID = id },
		func(info ports.RequestInfo) string { return info.RequestID },
	)
}

// GetRequestID returns the request ID set by RequestID, or an empty string.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID set by CorrelationID, or an empty string.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

func propagateID(
	header, key string,
	assign func(*ports.RequestInfo, string),
	fallback func(ports.RequestInfo) string,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		info := ports.RequestInfoFrom(ctx)

		id := c.GetHeader(header)
		if !validID(id) {
			id = ""
		}

		if id == "" && fallback != nil {
			id = fallback(info)
		}

		if id == "" {
			id = uuid.NewString()
		}

		assign(&info, id)
		c.Set(key, id)
		c.Header(header, id)

		ctx = ports.WithRequestInfo(ctx, info)
		ctx = logging.With(ctx, slog.String(key, id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// validID rejects empty, oversized or non-printable header values.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}

	return true
}
