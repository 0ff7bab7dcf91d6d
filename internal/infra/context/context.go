// Package context holds request scoped values shared by logging and transports.
package context

import "context"

type contextKey string

const contextKeyTraceID = contextKey("traceID")

// TraceIDFromContext returns the id of the HTTP request being served, as set
// by the tracing middleware or taken from the client's X-Request-ID header.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(contextKeyTraceID).(string)

	return traceID, ok
}

// WithTraceID returns a copy of ctx carrying traceID. Outgoing client requests
// forward it so one id follows a message through client and relay logs.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKeyTraceID, traceID)
}
