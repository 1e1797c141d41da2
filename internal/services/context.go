package services

import "context"

type contextKey string

const (
	scanIDKey contextKey = "scan_id"
	showKey   contextKey = "show"
	queueKey  contextKey = "queue"
)

// WithScanID annotates context with the scan correlation identifier.
func WithScanID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanIDFromContext extracts the scan identifier if present.
func ScanIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scanIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithShow annotates context with the show being processed.
func WithShow(ctx context.Context, show string) context.Context {
	if show == "" {
		return ctx
	}
	return context.WithValue(ctx, showKey, show)
}

// ShowFromContext returns the show identifier if present.
func ShowFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(showKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithQueue annotates context with the scheduler queue executing an action.
func WithQueue(ctx context.Context, queue string) context.Context {
	if queue == "" {
		return ctx
	}
	return context.WithValue(ctx, queueKey, queue)
}

// QueueFromContext returns the scheduler queue name if present.
func QueueFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(queueKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
