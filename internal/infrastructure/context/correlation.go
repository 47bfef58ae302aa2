package context

import "context"

type contextKey string

// CorrelationIDKey carries the request correlation ID, set by the HTTP
// middleware and forwarded on every outbound provider call.
const CorrelationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying the correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID returns the correlation ID, or "" if none is set.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}
