package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for the client registry, io-threads scheduler, and dentry
// serializer. These follow OpenTelemetry semantic convention style (dotted,
// lower-case) without claiming a registered semconv namespace.
const (
	// ========================================================================
	// Client registry attributes
	// ========================================================================
	AttrClientUID    = "client.uid"
	AttrTblIndex     = "client.tbl_index"
	AttrRefcount     = "client.refcount"
	AttrBindCount    = "client.bind_count"
	AttrTranslatorID = "client.translator_id"

	// ========================================================================
	// Scheduler attributes (io-threads)
	// ========================================================================
	AttrOperation   = "fop.operation"
	AttrPriority    = "fop.priority"
	AttrStubID      = "fop.stub_id"
	AttrQueueSize   = "fop.queue_size"
	AttrInFlight    = "fop.in_flight"
	AttrWorkerCount = "fop.worker_count"
	AttrPoisoned    = "fop.poisoned"

	// ========================================================================
	// Dentry locking attributes
	// ========================================================================
	AttrParentGfid = "dentrylock.parent_gfid"
	AttrBasename   = "dentrylock.basename"
	AttrLockCount  = "dentrylock.lock_count"

	// ========================================================================
	// Generic error attributes
	// ========================================================================
	AttrErrorCode = "error.code"
)

// Span names for the core operations traced across the three subsystems.
const (
	SpanClientGet   = "client.get"
	SpanClientRef   = "client.ref"
	SpanClientUnref = "client.unref"
	SpanClientPut   = "client.put"

	SpanSchedule = "iothreads.schedule"
	SpanDequeue  = "iothreads.dequeue"
	SpanResume   = "iothreads.resume"
	SpanPoison   = "iothreads.poison"

	SpanDentryLock    = "dentrylock.lock"
	SpanDentryOperate = "dentrylock.operate"
	SpanDentryUnlock  = "dentrylock.unlock"
)

// ClientUID returns an attribute for a client's stable identity string.
func ClientUID(uid string) attribute.KeyValue {
	return attribute.String(AttrClientUID, uid)
}

// TblIndex returns an attribute for a ClientTable slot index.
func TblIndex(idx int32) attribute.KeyValue {
	return attribute.Int64(AttrTblIndex, int64(idx))
}

// Refcount returns an attribute for a Client's refcount snapshot.
func Refcount(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrRefcount, int64(n))
}

// BindCount returns an attribute for a Client's bind_count snapshot.
func BindCount(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrBindCount, int64(n))
}

// TranslatorID returns an attribute for the owning xlator identity of a
// client scratch slot.
func TranslatorID(id string) attribute.KeyValue {
	return attribute.String(AttrTranslatorID, id)
}

// Operation returns an attribute for the filesystem operation name.
func Operation(name string) attribute.KeyValue {
	return attribute.String(AttrOperation, name)
}

// Priority returns an attribute for the io-threads priority class.
func Priority(name string) attribute.KeyValue {
	return attribute.String(AttrPriority, name)
}

// StubID returns an attribute for a CallStub identifier.
func StubID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrStubID, int64(id))
}

// QueueSize returns an attribute for a priority class's pending stub count.
func QueueSize(n int) attribute.KeyValue {
	return attribute.Int(AttrQueueSize, n)
}

// InFlight returns an attribute for a priority class's in-flight stub count.
func InFlight(n int32) attribute.KeyValue {
	return attribute.Int64(AttrInFlight, int64(n))
}

// WorkerCount returns an attribute for the current worker goroutine count.
func WorkerCount(n int32) attribute.KeyValue {
	return attribute.Int64(AttrWorkerCount, int64(n))
}

// Poisoned returns an attribute for whether a stub was destroyed instead of
// resumed.
func Poisoned(b bool) attribute.KeyValue {
	return attribute.Bool(AttrPoisoned, b)
}

// ParentGfid returns an attribute for a parent directory's stable identity.
func ParentGfid(gfid string) attribute.KeyValue {
	return attribute.String(AttrParentGfid, gfid)
}

// Basename returns an attribute for a child name under an entry-lock.
func Basename(name string) attribute.KeyValue {
	return attribute.String(AttrBasename, name)
}

// LockCount returns an attribute for the number of entry-locks held by an
// operation.
func LockCount(n int) attribute.KeyValue {
	return attribute.Int(AttrLockCount, n)
}

// ErrorCode returns an attribute for a numeric/enum error code.
func ErrorCode(code int) attribute.KeyValue {
	return attribute.Int(AttrErrorCode, code)
}

// StartClientSpan starts a span for a ClientRegistry operation.
func StartClientSpan(ctx context.Context, name string, clientUID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{ClientUID(clientUID)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartSchedulerSpan starts a span for an IOThreads scheduling transition.
func StartSchedulerSpan(ctx context.Context, name string, operation string, priority string, stubID uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(operation),
		Priority(priority),
		StubID(stubID),
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartDentrySpan starts a span for a DentrySerializer lock/operate/unlock
// transition.
func StartDentrySpan(ctx context.Context, name string, parentGfid, basename string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ParentGfid(parentGfid),
		Basename(basename),
	}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
