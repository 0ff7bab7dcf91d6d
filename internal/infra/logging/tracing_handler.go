package logging

import (
	"context"
	"log/slog"

	context_ "github.com/Bars-377/web-chat/internal/infra/context"
)

// TracingHandler wraps another slog.Handler and copies request scoped values
// (trace ID, realtime session ID, authenticated username) from the context
// into every log record.
type TracingHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*TracingHandler)(nil)

// NewTracingHandler creates a new TracingHandler wrapping the given handler.
func NewTracingHandler(h slog.Handler) *TracingHandler {
	return &TracingHandler{h: h}
}

// Handle implements slog.Handler.
func (h *TracingHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace []any

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		trace = append(trace, slog.String("id", traceID))
	}

	if sessionID, ok := context_.SessionIDFromContext(ctx); ok {
		trace = append(trace, slog.String("session", sessionID))
	}

	if username, ok := context_.UsernameFromContext(ctx); ok {
		trace = append(trace, slog.String("username", username))
	}

	if len(trace) > 0 {
		r.AddAttrs(slog.Group("trace", trace...))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *TracingHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewTracingHandler(h.h.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.WithGroup.
func (h *TracingHandler) WithGroup(name string) Handler {
	return NewTracingHandler(h.h.WithGroup(name))
}

// Enabled implements slog.Handler.Enabled.
func (h *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
