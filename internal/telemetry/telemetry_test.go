package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "iocore", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	err = shutdown(ctx)
	assert.NoError(t, err)

	assert.False(t, IsEnabled())
}

func TestInitEnabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = "iocore-test"

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	defer func() { _ = shutdown(ctx) }()

	assert.True(t, IsEnabled())

	_, span := StartSpan(ctx, "test.span")
	span.End()
}

func TestTracerReturnsNoOp(t *testing.T) {
	tracer = nil
	enabled = false

	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientUID("client-1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientUID", func(t *testing.T) {
		attr := ClientUID("client-1")
		assert.Equal(t, AttrClientUID, string(attr.Key))
		assert.Equal(t, "client-1", attr.Value.AsString())
	})

	t.Run("TblIndex", func(t *testing.T) {
		attr := TblIndex(7)
		assert.Equal(t, AttrTblIndex, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("Refcount", func(t *testing.T) {
		attr := Refcount(3)
		assert.Equal(t, AttrRefcount, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("BindCount", func(t *testing.T) {
		attr := BindCount(2)
		assert.Equal(t, AttrBindCount, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("TranslatorID", func(t *testing.T) {
		attr := TranslatorID("io-threads")
		assert.Equal(t, AttrTranslatorID, string(attr.Key))
		assert.Equal(t, "io-threads", attr.Value.AsString())
	})

	t.Run("Operation", func(t *testing.T) {
		attr := Operation("MKDIR")
		assert.Equal(t, AttrOperation, string(attr.Key))
		assert.Equal(t, "MKDIR", attr.Value.AsString())
	})

	t.Run("Priority", func(t *testing.T) {
		attr := Priority("high")
		assert.Equal(t, AttrPriority, string(attr.Key))
		assert.Equal(t, "high", attr.Value.AsString())
	})

	t.Run("StubID", func(t *testing.T) {
		attr := StubID(42)
		assert.Equal(t, AttrStubID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("QueueSize", func(t *testing.T) {
		attr := QueueSize(5)
		assert.Equal(t, AttrQueueSize, string(attr.Key))
		assert.Equal(t, int64(5), attr.Value.AsInt64())
	})

	t.Run("InFlight", func(t *testing.T) {
		attr := InFlight(2)
		assert.Equal(t, AttrInFlight, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("WorkerCount", func(t *testing.T) {
		attr := WorkerCount(8)
		assert.Equal(t, AttrWorkerCount, string(attr.Key))
		assert.Equal(t, int64(8), attr.Value.AsInt64())
	})

	t.Run("Poisoned", func(t *testing.T) {
		attr := Poisoned(true)
		assert.Equal(t, AttrPoisoned, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("ParentGfid", func(t *testing.T) {
		attr := ParentGfid("00000000-0000-0000-0000-000000000001")
		assert.Equal(t, AttrParentGfid, string(attr.Key))
		assert.Equal(t, "00000000-0000-0000-0000-000000000001", attr.Value.AsString())
	})

	t.Run("Basename", func(t *testing.T) {
		attr := Basename("file.txt")
		assert.Equal(t, AttrBasename, string(attr.Key))
		assert.Equal(t, "file.txt", attr.Value.AsString())
	})

	t.Run("LockCount", func(t *testing.T) {
		attr := LockCount(2)
		assert.Equal(t, AttrLockCount, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("ErrorCode", func(t *testing.T) {
		attr := ErrorCode(3)
		assert.Equal(t, AttrErrorCode, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})
}

func TestStartClientSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartClientSpan(ctx, SpanClientGet, "client-1")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartClientSpan(ctx, SpanClientRef, "client-2", Refcount(1))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartSchedulerSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartSchedulerSpan(ctx, SpanSchedule, "MKDIR", "high", 1)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartSchedulerSpan(ctx, SpanDequeue, "LOOKUP", "normal", 2, QueueSize(4))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartDentrySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDentrySpan(ctx, SpanDentryLock, "parent-gfid", "file.txt")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartDentrySpan(ctx, SpanDentryUnlock, "parent-gfid", "file.txt", LockCount(2))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
