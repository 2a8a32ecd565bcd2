package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldDocumentID = "document_id"
	FieldRequestID  = "request_id"
	FieldBlockID    = "block_id"

	// Components
	FieldComponent = "component"
	FieldService   = "service"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount        = "count"
	FieldChangeCount  = "changes"
	FieldTouchedCount = "touched"
	FieldDeleteCount  = "deletes"

	// Draft machine
	FieldState = "state"
	FieldEvent = "event"
	FieldFrom  = "from"
	FieldTo    = "to"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

// Context keys for propagating logging context
type contextKey string

const (
	documentIDKey contextKey = "logger_document_id"
	requestIDKey  contextKey = "logger_request_id"
	componentKey  contextKey = "logger_component"
)

// WithDocumentID adds a document ID to the context for logging
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, documentIDKey, documentID)
}

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if id, ok := ctx.Value(documentIDKey).(string); ok && id != "" {
		fields = append(fields, FieldDocumentID, id)
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields = append(fields, FieldRequestID, id)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns l (or the global logger when l is nil) with
// fields extracted from ctx.
func LoggerFromContext(ctx context.Context, l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		l = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	store := draftstore.New(db, logger.ComponentLogger("draftstore"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
