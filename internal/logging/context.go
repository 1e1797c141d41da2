package logging

import (
	"context"
	"log/slog"

	"showkeeper/internal/services"
)

// Structured keys shared by every component. The console handler folds
// component, show, queue and correlation id into the line prefix.
const (
	FieldComponent     = "component"
	FieldShow          = "show"
	FieldSeason        = "season"
	FieldQueue         = "queue"
	FieldAction        = "action"
	FieldCorrelationID = "correlation_id"

	// FieldEventType classifies a line for filtering, e.g. "scan_complete".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact says what the user loses when a warning fires.
	FieldImpact = "impact"
)

// WithContext binds the scan id, show and queue carried by ctx to logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if id, ok := services.ScanIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldCorrelationID, id))
	}
	if show, ok := services.ShowFromContext(ctx); ok {
		args = append(args, slog.String(FieldShow, show))
	}
	if queue, ok := services.QueueFromContext(ctx); ok {
		args = append(args, slog.String(FieldQueue, queue))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
