package ports

import "context"

// RequestInfo identifies the inbound call an operation runs on behalf of.
// The application layer copies the correlation ID onto the audit events it stages.
type RequestInfo struct {
	RequestID     string
	CorrelationID string
}

type requestInfoKey struct{}

// WithRequestInfo returns a context carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the RequestInfo stored in ctx, or the zero value.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}

	info, _ := ctx.Value(requestInfoKey{}).(RequestInfo)

	return info
}
