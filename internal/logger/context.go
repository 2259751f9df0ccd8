package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single frame as it
// moves from ClientRegistry resolution through IOThreads scheduling into
// DentrySerializer's lock/operate/unlock chain.
type LogContext struct {
	TraceID     string    // OpenTelemetry trace ID
	SpanID      string    // OpenTelemetry span ID
	ClientUID   string    // client_t.client_uid this frame resolved to
	TranslatorID string   // owning xlator identity, for scratch-slot logging
	Operation   string    // filesystem operation name (LOOKUP, MKDIR, RENAME, ...)
	Priority    string    // io-threads priority class this stub was scheduled at
	StubID      uint64    // CallStub identifier, for correlating schedule/dequeue/resume logs
	StartTime   time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a frame bound to clientUID.
func NewLogContext(clientUID string) *LogContext {
	return &LogContext{
		ClientUID: clientUID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithPriority returns a copy with the scheduled priority class set
func (lc *LogContext) WithPriority(priority string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Priority = priority
	}
	return clone
}

// WithStub returns a copy tagged with a CallStub identifier
func (lc *LogContext) WithStub(stubID uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StubID = stubID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
