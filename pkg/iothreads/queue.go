package iothreads

import (
	"golang.org/x/sys/cpu"

	ioatomic "github.com/glustercore/iocore/pkg/atomic"
)

// priorityClass holds one scheduling priority's queue state. All fields,
// queueSize included, are read and mutated only while the owning
// IOThreads.lock is held. queueSize is still an atomic cell flanked by
// cache-line padding, so it never shares a line with the other fields.
type priorityClass struct {
	_ cpu.CacheLinePad

	queueSize ioatomic.Cell[uint64]

	_ cpu.CacheLinePad

	// clients is a ring of PerClientCtx, each with a non-empty reqs.
	// Dequeue takes the head, and either unlinks it (reqs now empty) or
	// rotates it to the tail (reqs still non-empty), giving round-robin
	// fairness across clients at this priority.
	clients []*perClientCtx

	// noClient serves frames with no owning client (ClientUID == "").
	noClient *perClientCtx

	inFlight int
	limit    int
	marked   bool
}

func newPriorityClass(limit int) *priorityClass {
	return &priorityClass{
		limit:    limit,
		noClient: newPerClientCtx(""),
	}
}

// pushBack appends ctx to the tail of clients and marks it linked.
func (pc *priorityClass) pushBack(ctx *perClientCtx) {
	ctx.linked = true
	pc.clients = append(pc.clients, ctx)
}

// popFront removes and returns the head of clients.
func (pc *priorityClass) popFront() *perClientCtx {
	if len(pc.clients) == 0 {
		return nil
	}
	ctx := pc.clients[0]
	pc.clients = pc.clients[1:]
	ctx.linked = false
	return ctx
}

// rotate moves the head of clients to the tail.
func (pc *priorityClass) rotate() {
	if len(pc.clients) < 2 {
		return
	}
	head := pc.clients[0]
	pc.clients = append(pc.clients[1:], head)
}

// enqueue appends stub to ctx's FIFO and links ctx into the clients ring
// if it was not already linked (i.e. its queue was empty before this
// append). Frames with no owning client share cls.noClient, which
// participates in the same ring and round-robin rotation as any other
// client's context — it is simply the context every client-less frame
// happens to share.
func (pc *priorityClass) enqueue(ctx *perClientCtx, stub *CallStub) {
	wasEmpty := len(ctx.reqs) == 0
	ctx.reqs = append(ctx.reqs, stub)
	if wasEmpty && !ctx.linked {
		pc.pushBack(ctx)
	}
}

// dequeue pops the head stub for this priority, applying round-robin
// rotation across clients. ok is false if the class has no ready work.
func (pc *priorityClass) dequeue() (stub *CallStub, ok bool) {
	if len(pc.clients) == 0 {
		return nil, false
	}

	head := pc.clients[0]
	stub = head.reqs[0]
	head.reqs = head.reqs[1:]

	if len(head.reqs) == 0 {
		pc.popFront()
	} else {
		pc.rotate()
	}

	return stub, true
}
