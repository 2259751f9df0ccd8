package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the client registry,
// io-threads scheduler, and dentry serializer. Keep these consistent across
// all log statements so aggregation/querying works without per-call-site
// knowledge of key spelling.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Client identity (ClientRegistry)
	// ========================================================================
	KeyClientUID    = "client_uid"    // client_t.client_uid
	KeyTblIndex     = "tbl_index"     // ClientTable slot index
	KeyRefcount     = "refcount"      // Client.refcount snapshot
	KeyBindCount    = "bind_count"    // Client.bind_count snapshot
	KeyAuthFlavor   = "auth_flavor"   // ClientAuthData.flavour
	KeyTranslatorID = "translator_id" // opaque xlator identity for scratch slots

	// ========================================================================
	// Scheduling (IOThreads)
	// ========================================================================
	KeyOperation   = "operation"    // filesystem operation name
	KeyPriority    = "priority"     // priority class: high, normal, low, least
	KeyStubID      = "stub_id"      // CallStub identifier
	KeyQueueSize   = "queue_size"   // pending stub count at a priority
	KeyInFlight    = "in_flight"    // in-flight stub count at a priority
	KeyWorkerCount = "worker_count" // current worker goroutine count
	KeyPoisoned    = "poisoned"     // whether a stub was destroyed instead of resumed

	// ========================================================================
	// Dentry locking (DentrySerializer)
	// ========================================================================
	KeyParentGfid = "parent_gfid" // parent directory stable identity
	KeyBasename   = "basename"    // child name under lock
	KeyLockCount  = "lock_count"  // number of entry-locks in this operation's set

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/enum error code
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// ClientUID returns a slog.Attr for a client's stable identity string.
func ClientUID(uid string) slog.Attr { return slog.String(KeyClientUID, uid) }

// TblIndex returns a slog.Attr for a ClientTable slot index.
func TblIndex(idx int32) slog.Attr { return slog.Int64(KeyTblIndex, int64(idx)) }

// Refcount returns a slog.Attr for a Client's refcount snapshot.
func Refcount(n uint32) slog.Attr { return slog.Uint64(KeyRefcount, uint64(n)) }

// BindCount returns a slog.Attr for a Client's bind_count snapshot.
func BindCount(n uint32) slog.Attr { return slog.Uint64(KeyBindCount, uint64(n)) }

// Operation returns a slog.Attr for the filesystem operation name.
func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

// Priority returns a slog.Attr for the io-threads priority class.
func Priority(name string) slog.Attr { return slog.String(KeyPriority, name) }

// StubID returns a slog.Attr for a CallStub identifier.
func StubID(id uint64) slog.Attr { return slog.Uint64(KeyStubID, id) }

// QueueSize returns a slog.Attr for a priority class's pending stub count.
func QueueSize(n int) slog.Attr { return slog.Int(KeyQueueSize, n) }

// InFlight returns a slog.Attr for a priority class's in-flight stub count.
func InFlight(n int32) slog.Attr { return slog.Int64(KeyInFlight, int64(n)) }

// WorkerCount returns a slog.Attr for the current worker goroutine count.
func WorkerCount(n int32) slog.Attr { return slog.Int64(KeyWorkerCount, int64(n)) }

// ParentGfid returns a slog.Attr for a parent directory's stable identity.
func ParentGfid(gfid string) slog.Attr { return slog.String(KeyParentGfid, gfid) }

// Basename returns a slog.Attr for a child name under an entry-lock.
func Basename(name string) slog.Attr { return slog.String(KeyBasename, name) }

// Err returns a slog.Attr for an error value, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }
