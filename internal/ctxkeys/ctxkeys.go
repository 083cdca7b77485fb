// Package ctxkeys defines the context keys shared across the module.
// Typed accessors keep call sites honest; the keys themselves stay
// unexported so nothing outside this package can collide with them.
package ctxkeys

import "context"

type contextKey string

const (
	queryIDKey   contextKey = "query_id"
	requestIDKey contextKey = "request_id"
)

// WithQueryID attaches a recall correlation id. The recall engine reuses
// an id found on the context instead of minting its own, so a caller can
// tie engine logs back to its own request handling.
func WithQueryID(ctx context.Context, queryID string) context.Context {
	return context.WithValue(ctx, queryIDKey, queryID)
}

// QueryID returns the recall correlation id, if any.
func QueryID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(queryIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRequestID attaches the diagnostics server's per-request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the diagnostics request id, if any.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
