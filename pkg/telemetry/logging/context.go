package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// ReloadIDKey is the context key for the id of one stack reload.
	ReloadIDKey contextKey = "reload_id"

	// StackKey is the context key for the stack document being processed.
	StackKey contextKey = "stack"

	// TraceIDKey is the context key for trace IDs.
	TraceIDKey contextKey = "trace_id"
)

// WithReloadID adds a reload id to the context.
func WithReloadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ReloadIDKey, id)
}

// GetReloadID retrieves the reload id from the context.
func GetReloadID(ctx context.Context) string {
	if id, ok := ctx.Value(ReloadIDKey).(string); ok {
		return id
	}
	return ""
}

// WithStack adds a stack document path to the context.
func WithStack(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, StackKey, path)
}

// GetStack retrieves the stack document path from the context.
func GetStack(ctx context.Context) string {
	if path, ok := ctx.Value(StackKey).(string); ok {
		return path
	}
	return ""
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// ContextFields returns the log fields carried by ctx as key/value pairs.
func ContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	if v := GetReloadID(ctx); v != "" {
		fields = append(fields, string(ReloadIDKey), v)
	}
	if v := GetStack(ctx); v != "" {
		fields = append(fields, string(StackKey), v)
	}
	if v := GetTraceID(ctx); v != "" {
		fields = append(fields, string(TraceIDKey), v)
	}
	return fields
}
