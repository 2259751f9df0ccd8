package iothreads

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// stubSeq hands out a monotonic, trace-friendly numeric identity per
// stub. CallStub.ID stays a UUID for log/debug correlation; Seq exists
// only because OpenTelemetry attributes are typed and a UUID string
// doesn't fit the stub-id attribute's uint64 shape.
var stubSeq uint64

// CallStub is a deferred filesystem call, carrying enough of its
// originating frame to be scheduled, dequeued, and resumed on a worker
// goroutine. Resume runs the deferred call; it is never invoked directly
// by schedule's caller.
type CallStub struct {
	ID           string
	Seq          uint64
	Operation    string
	ClientUID    string
	IsServicePID bool

	// Ctx carries the span context established at Schedule time so a
	// worker can continue the same trace when it later dequeues and
	// resumes this stub.
	Ctx context.Context

	// Poison is set by disconnect_cbk on every stub belonging to a
	// disconnecting client when cleanup-of-disconnected-requests is
	// enabled. Workers discover it on dequeue and destroy the stub
	// instead of resuming it.
	Poison bool

	Resume  func()
	Destroy func()
}

// NewCallStub constructs a CallStub with a synthesized ID, matching the
// source's call_stub_t allocation.
func NewCallStub(ctx context.Context, operation, clientUID string, isServicePID bool, resume, destroy func()) *CallStub {
	return &CallStub{
		ID:           uuid.NewString(),
		Seq:          atomic.AddUint64(&stubSeq, 1),
		Operation:    operation,
		ClientUID:    clientUID,
		IsServicePID: isServicePID,
		Ctx:          ctx,
		Resume:       resume,
		Destroy:      destroy,
	}
}

// perClientCtx is the per-client, per-priority FIFO queue the scheduler
// round-robins across to give per-client fairness within one priority
// class.
type perClientCtx struct {
	clientUID string
	reqs      []*CallStub
	linked    bool // true while present in the owning priorityClass's clients ring
}

func newPerClientCtx(clientUID string) *perClientCtx {
	return &perClientCtx{clientUID: clientUID}
}
