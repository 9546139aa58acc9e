package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldSubject is the standardized structured logging key for canonical subject IDs.
	FieldSubject = "subject"
	// FieldGroup is the standardized structured logging key for experimental group labels.
	FieldGroup = "group"
	// FieldPhase is the standardized structured logging key for protocol phase labels.
	FieldPhase = "phase"
	// FieldRunID is the standardized structured logging key for pipeline run identifiers.
	FieldRunID = "run_id"
	// FieldPath is the standardized structured logging key for the file a message concerns.
	FieldPath = "path"
)

type contextKey string

const (
	stageContextKey   contextKey = "stage"
	subjectContextKey contextKey = "subject"
	runIDContextKey   contextKey = "run_id"
)

// WithStage attaches a pipeline stage name to the context for log enrichment.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageContextKey, stage)
}

// WithSubject attaches a canonical subject ID to the context for log enrichment.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// WithRunID attaches a pipeline run identifier to the context for log enrichment.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if stage, ok := ctx.Value(stageContextKey).(string); ok && stage != "" {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if subject, ok := ctx.Value(subjectContextKey).(string); ok && subject != "" {
		fields = append(fields, slog.String(FieldSubject, subject))
	}
	if runID, ok := ctx.Value(runIDContextKey).(string); ok && runID != "" {
		fields = append(fields, slog.String(FieldRunID, runID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
