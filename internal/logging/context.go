package logging

import (
	"context"

	"go.uber.org/zap"
)

// CorrelationHeader carries the request correlation id in and out of the
// command surface.
const CorrelationHeader = "X-Correlation-Id"

type correlationCtxKey struct{}
type loggerCtxKey struct{}

// WithCorrelationID stores id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationCtxKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, falling back to base and
// then to a no-op logger. The result carries the correlation id when one
// is set.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	logger := base
	if l, ok := ctx.Value(loggerCtxKey{}).(*zap.Logger); ok && l != nil {
		logger = l
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if id := CorrelationID(ctx); id != "" {
		logger = logger.With(zap.String("correlation_id", id))
	}
	return logger
}
