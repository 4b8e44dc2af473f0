package dto

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-revisions/internal/domain"
	"github.com/jsamuelsen/quote-revisions/internal/platform/logging"
	"github.com/jsamuelsen/quote-revisions/internal/ports"
)

// Messages shown for errors whose internal detail must not reach the caller.
const (
	MessageNotAccessible  = "quote not found or not accessible"
	MessageNotActivatable = "this revision can no longer be activated"
	MessageRetry          = "please retry, another update is in progress"
	MessageUnavailable    = "service temporarily unavailable"
	MessageTimeout        = "request timeout exceeded"
	MessageInternal       = "an internal error occurred"
)

// traceIDKey is the gin context key a middleware may set to override the trace ID.
const traceIDKey = "trace_id"

// MapDomainError maps a domain error to an HTTP status and error response.
// Cross-tenant access is reported exactly like a missing quote.
func MapDomainError(err error) (int, *ErrorResponse) {
	switch {
	case domain.IsNotFound(err), domain.IsForbidden(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, MessageNotAccessible)

	case domain.IsInvalidInput(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var inputErr *domain.InvalidInputError
		if errors.As(err, &inputErr) && inputErr.Field != "" {
			resp.Error.Details = map[string]string{inputErr.Field: inputErr.Message}
		}

		return http.StatusBadRequest, resp

	case domain.IsInvalidBundle(err):
		return http.StatusUnprocessableEntity, NewErrorResponse(ErrorCodeInvalidBundle, err.Error())

	case domain.IsInvalidState(err):
		resp := NewErrorResponse(ErrorCodeInvalidState, err.Error())

		var stateErr *domain.InvalidStateError
		if errors.As(err, &stateErr) {
			if stateErr.Operation == "activate" {
				resp.Error.Message = MessageNotActivatable
			}

			resp.Error.Details = map[string]string{"status": string(stateErr.Status)}
		}

		return http.StatusConflict, resp

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(ErrorCodeConflict, MessageRetry)

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, MessageUnavailable)

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewErrorResponse(ErrorCodeTimeout, MessageTimeout)

	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, MessageInternal)
	}
}

// HandleError writes the error response for err and aborts the handler chain.
// Errors hidden behind a generic message are logged with their full text.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.AbortWithStatusJSON(status, resp)
}

// GetTraceID returns the trace ID for the request: an explicit context value,
// then the active span, then the request ID.
func GetTraceID(c *gin.Context) string {
	if v, ok := c.Get(traceIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}

		return ""
	}

	if c.Request == nil {
		return ""
	}

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ports.RequestInfoFrom(c.Request.Context()).RequestID
}
