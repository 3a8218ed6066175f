package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const fieldsContextKey contextKey = "logger_fields"

// WithFields returns a context carrying log fields that the *Ctx logging
// functions append to every record. Used by the HTTP layer to stamp the
// request id onto all logs emitted while handling a request.
func WithFields(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := ctx.Value(fieldsContextKey).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, fieldsContextKey, merged)
}

func appendContextFields(ctx context.Context, args []any) []any {
	attrs, _ := ctx.Value(fieldsContextKey).([]slog.Attr)
	if len(attrs) == 0 {
		return args
	}
	out := make([]any, 0, len(args)+len(attrs))
	out = append(out, args...)
	for _, a := range attrs {
		out = append(out, a)
	}
	return out
}
