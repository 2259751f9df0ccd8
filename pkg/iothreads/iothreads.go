// Package iothreads schedules CallStubs from the protocol layer onto a
// pool of worker goroutines whose count adapts to load, with four
// priority classes, per-client round-robin fairness within each class,
// and a stall watchdog.
package iothreads

import (
	"context"
	"sync"
	"time"

	"github.com/glustercore/iocore/internal/telemetry"
	ioatomic "github.com/glustercore/iocore/pkg/atomic"
)

// State is IOThreads' lifecycle state.
type State int

const (
	Inited State = iota
	Started
	Stopped
)

func (s State) String() string {
	switch s {
	case Inited:
		return "Inited"
	case Started:
		return "Started"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StallHandler is invoked when the watchdog's decay detector fires for a
// priority class. The source terminates the process by delivering a
// diagnostic signal when this happens; a library has no business killing
// its host process, so this is the seam callers use to decide what
// "unhealthy" means for them (log, alert, or — if they really want
// source parity — os.Exit themselves).
type StallHandler func(pri Priority, err error)

// clientPriorityCtxs is the array of four per-client contexts, one per
// priority, that each client owns.
type clientPriorityCtxs [numPriorities]*perClientCtx

// IOThreads is the worker pool.
type IOThreads struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg Config

	state      State
	classes    [numPriorities]*priorityClass
	clientCtxs map[string]*clientPriorityCtxs

	currCount  int
	sleepCount int

	queueSize ioatomic.Cell[uint64]

	decay    [numPriorities]eventDecay
	badTimes [numPriorities]int

	watchdogStop chan struct{}
	watchdogDone chan struct{}

	onStall StallHandler
}

// New constructs an IOThreads pool in state Inited. It does not spawn
// any goroutines until Start is called.
func New(cfg Config, onStall StallHandler) *IOThreads {
	t := &IOThreads{
		cfg:        cfg,
		clientCtxs: make(map[string]*clientPriorityCtxs),
		onStall:    onStall,
	}
	t.cond = sync.NewCond(&t.mu)
	for pri := Priority(0); pri < numPriorities; pri++ {
		t.classes[pri] = newPriorityClass(cfg.Limit[pri])
	}
	return t
}

// Start transitions Inited -> Started, spawning the floor of MinThreads
// workers and, if WatchdogSeconds > 0, the watchdog goroutine.
func (t *IOThreads) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Inited {
		return NewNotStartedError("IOThreads already started or stopped")
	}
	t.state = Started

	for i := 0; i < MinThreads; i++ {
		t.spawnWorkerLocked()
	}

	if t.cfg.WatchdogSeconds > 0 {
		t.watchdogStop = make(chan struct{})
		t.watchdogDone = make(chan struct{})
		go t.watchdogLoop(t.watchdogStop, t.watchdogDone)
	}

	return nil
}

// Stop sets state to Stopped, broadcasts the condition, and waits for
// curr_count to reach zero (bounded by the worker idle timeout), then
// stops the watchdog. Stopping does not drain the queue: any stubs still
// queued are left for the caller's own cleanup handler.
func (t *IOThreads) Stop() error {
	t.mu.Lock()
	if t.state != Started {
		t.mu.Unlock()
		return NewNotStartedError("IOThreads is not running")
	}
	t.state = Stopped
	t.cond.Broadcast()
	for t.currCount > 0 {
		t.cond.Wait()
	}
	t.mu.Unlock()

	if t.watchdogStop != nil {
		close(t.watchdogStop)
		<-t.watchdogDone
		t.watchdogStop = nil
		t.watchdogDone = nil
	}
	return nil
}

// Reconfigure applies new tunables on the fly, re-honouring a changed
// WatchdogSeconds by stopping and restarting the watchdog goroutine.
// StackSize is fixed at New and never changes here, regardless of what
// cfg carries.
func (t *IOThreads) Reconfigure(cfg Config) {
	t.mu.Lock()
	prevWatchdogSeconds := t.cfg.WatchdogSeconds
	cfg.StackSize = t.cfg.StackSize
	t.cfg = cfg
	for pri := Priority(0); pri < numPriorities; pri++ {
		t.classes[pri].limit = cfg.Limit[pri]
	}
	running := t.state == Started
	t.mu.Unlock()

	if !running || cfg.WatchdogSeconds == prevWatchdogSeconds {
		return
	}

	if t.watchdogStop != nil {
		close(t.watchdogStop)
		<-t.watchdogDone
		t.watchdogStop = nil
		t.watchdogDone = nil
	}
	if cfg.WatchdogSeconds > 0 {
		t.watchdogStop = make(chan struct{})
		t.watchdogDone = make(chan struct{})
		go t.watchdogLoop(t.watchdogStop, t.watchdogDone)
	}
}

// State returns the pool's current lifecycle state.
func (t *IOThreads) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// clientCtxLocked returns the PerClientCtx for clientUID at pri,
// creating the client's four-priority context array if absent. Must be
// called with t.mu held.
func (t *IOThreads) clientCtxLocked(clientUID string, pri Priority) *perClientCtx {
	if clientUID == "" {
		return t.classes[pri].noClient
	}
	entry, ok := t.clientCtxs[clientUID]
	if !ok {
		entry = &clientPriorityCtxs{}
		t.clientCtxs[clientUID] = entry
	}
	if entry[pri] == nil {
		entry[pri] = newPerClientCtx(clientUID)
	}
	return entry[pri]
}

// Schedule classifies stub's operation and, unless it is a skip
// operation, enqueues it for worker pickup. skip reports that the
// caller must run the stub synchronously itself — forget, release,
// releasedir, and getspec never enter a priority queue. schedule never
// blocks: the queue is bounded only by memory.
//
// The span started here ends before Schedule returns — scheduling itself
// is synchronous — but its context is retained on the returned stub so
// the worker that eventually dequeues and resumes it can open a child
// span under the same trace.
func (t *IOThreads) Schedule(ctx context.Context, operation, clientUID string, isServicePID bool, resume, destroy func()) (stub *CallStub, skip bool, err error) {
	t.mu.Lock()
	leastPriority := t.cfg.LeastPriority
	t.mu.Unlock()

	pri, skip, err := Classify(operation, isServicePID && leastPriority)
	if err != nil {
		return nil, false, err
	}

	stubCtx, span := telemetry.StartSchedulerSpan(ctx, telemetry.SpanSchedule, operation, pri.String(), 0)

	stub = NewCallStub(stubCtx, operation, clientUID, isServicePID, resume, destroy)
	span.SetAttributes(telemetry.StubID(stub.Seq))
	span.End()

	if skip {
		return stub, true, nil
	}

	t.mu.Lock()
	if t.state == Inited {
		t.state = Started
		for i := 0; i < MinThreads; i++ {
			t.spawnWorkerLocked()
		}
	}

	pctx := t.clientCtxLocked(clientUID, pri)
	cls := t.classes[pri]
	cls.enqueue(pctx, stub)
	cls.queueSize.Add(1)
	t.queueSize.Add(1)

	t.workersScaleLocked()
	t.cond.Signal()
	t.mu.Unlock()

	return stub, false, nil
}

// dequeueLocked scans High -> Normal -> Low -> Least and returns the
// first ready stub. Must be called with t.mu held.
func (t *IOThreads) dequeueLocked() (*CallStub, Priority, bool) {
	for pri := Priority(0); pri < numPriorities; pri++ {
		cls := t.classes[pri]
		if cls.inFlight >= cls.limit {
			continue
		}
		stub, ok := cls.dequeue()
		if !ok {
			continue
		}
		cls.inFlight++
		cls.marked = false
		cls.queueSize.Sub(1)
		t.queueSize.Sub(1)
		return stub, pri, true
	}
	return nil, 0, false
}

// workersScaleLocked computes desired concurrency as the sum, over
// priorities, of min(queueSize, limit), clamps it to
// [MinThreads, cfg.MaxCount], and spawns new workers up to that count.
// Must be called with t.mu held.
func (t *IOThreads) workersScaleLocked() {
	scale := 0
	for pri := Priority(0); pri < numPriorities; pri++ {
		cls := t.classes[pri]
		qs := int(cls.queueSize.Load())
		if qs > cls.limit {
			qs = cls.limit
		}
		scale += qs
	}
	if scale < MinThreads {
		scale = MinThreads
	}
	if scale > t.cfg.MaxCount {
		scale = t.cfg.MaxCount
	}

	for t.currCount < scale {
		t.spawnWorkerLocked()
	}
}

// spawnWorkerLocked starts one worker goroutine and increments
// currCount. Must be called with t.mu held.
func (t *IOThreads) spawnWorkerLocked() {
	t.currCount++
	go t.workerLoop()
}

// workerLoop is one worker goroutine's body: lock, release the priority
// slot held by the previous iteration's work, wait for work or idle
// timeout, dequeue, unlock, then run the stub.
func (t *IOThreads) workerLoop() {
	var heldPriority Priority
	held := false

	for {
		t.mu.Lock()

		if held {
			t.classes[heldPriority].inFlight--
			held = false
		}

		bye := false
		for t.queueSize.Load() == 0 {
			if t.state == Stopped {
				bye = true
				break
			}
			t.sleepCount++
			woke := t.condWaitWithDeadline(t.cfg.IdleTime)
			t.sleepCount--
			if t.state == Stopped || !woke {
				bye = true
				break
			}
		}

		var stub *CallStub
		var pri Priority
		if bye {
			if t.state == Stopped || t.currCount > MinThreads {
				t.currCount--
				if t.currCount == 0 {
					t.cond.Broadcast()
				}
				t.mu.Unlock()
				return
			}
			bye = false
		}
		if !bye {
			var ok bool
			stub, pri, ok = t.dequeueLocked()
			if ok {
				heldPriority = pri
				held = true
			}
		}

		t.mu.Unlock()

		if stub == nil {
			continue
		}

		stubCtx := stub.Ctx
		if stubCtx == nil {
			stubCtx = context.Background()
		}
		_, dequeueSpan := telemetry.StartSchedulerSpan(stubCtx, telemetry.SpanDequeue, stub.Operation, heldPriority.String(), stub.Seq, telemetry.Poisoned(stub.Poison))
		dequeueSpan.End()

		if stub.Poison {
			if stub.Destroy != nil {
				stub.Destroy()
			}
		} else if stub.Resume != nil {
			_, resumeSpan := telemetry.StartSchedulerSpan(stubCtx, telemetry.SpanResume, stub.Operation, heldPriority.String(), stub.Seq)
			stub.Resume()
			resumeSpan.End()
		}
	}
}

// condWaitWithDeadline waits on t.cond for at most d, returning false if
// the deadline elapsed without an intervening signal/broadcast. Must be
// called with t.mu held, exactly like sync.Cond.Wait itself: it unlocks
// for the duration of the wait and re-acquires before returning.
func (t *IOThreads) condWaitWithDeadline(d time.Duration) (woke bool) {
	timer := time.AfterFunc(d, func() {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	})

	t.cond.Wait()

	// Stop reports whether it fired before we got here: if it already
	// fired, our wake-up may be the timeout itself rather than a genuine
	// signal, so we conservatively report a timeout.
	return timer.Stop()
}

// DisconnectClient poisons every stub currently queued for clientUID, if
// CleanupDisconnectedReqs is enabled. Workers discover the poison flag on
// dequeue and destroy rather than resume those stubs.
func (t *IOThreads) DisconnectClient(clientUID string) {
	if !t.cfg.CleanupDisconnectedReqs {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.clientCtxs[clientUID]
	if !ok {
		return
	}
	for _, ctx := range entry {
		if ctx == nil {
			continue
		}
		for _, stub := range ctx.reqs {
			stub.Poison = true
		}
	}
}

// watchdogLoop wakes every max(WatchdogSeconds/5, 1) seconds and applies
// the stall check to every priority class.
func (t *IOThreads) watchdogLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := t.cfg.WatchdogSeconds / 5
	if interval < 1 {
		interval = 1
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.watchdogTick()
		}
	}
}

// watchdogTick runs one watchdog wake under the pool lock.
func (t *IOThreads) watchdogTick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().Unix()

	for pri := Priority(0); pri < numPriorities; pri++ {
		cls := t.classes[pri]
		if cls.marked {
			t.badTimes[pri]++
			if t.badTimes[pri] >= 5 {
				fired := t.decay[pri].apply(now, t.cfg.StallEventThresholds[pri], t.cfg.StallWindowSeconds)
				cls.limit++
				t.badTimes[pri] = 0
				if fired && t.onStall != nil {
					t.onStall(pri, NewWatchdogStallError("priority class stalled repeatedly in a short window"))
				}
			}
		} else {
			t.badTimes[pri] = 0
		}
		cls.marked = int(cls.queueSize.Load()) > 0
	}
}

// PriorityStats is a point-in-time snapshot of one priority class, for
// statedump and telemetry.
type PriorityStats struct {
	Priority  Priority
	QueueSize uint64
	InFlight  int
	Limit     int
	Marked    bool
}

// PoolStatedump is a point-in-time snapshot of the whole worker pool,
// mirroring the original's proc-dump fields: maximum_threads_count,
// current_threads_count, sleep_count, idle_time, stack_size, and the
// four per-priority thread limits (via Classes).
type PoolStatedump struct {
	Classes        []PriorityStats
	MaximumThreads int
	CurrentThreads int
	SleepCount     int
	IdleTime       time.Duration
	StackSize      int64
	State          State
}

// Statedump returns a snapshot of every priority class plus the pool's
// worker counts and fixed tunables.
func (t *IOThreads) Statedump() PoolStatedump {
	t.mu.Lock()
	defer t.mu.Unlock()

	classes := make([]PriorityStats, numPriorities)
	for pri := Priority(0); pri < numPriorities; pri++ {
		cls := t.classes[pri]
		classes[pri] = PriorityStats{
			Priority:  pri,
			QueueSize: cls.queueSize.Load(),
			InFlight:  cls.inFlight,
			Limit:     cls.limit,
			Marked:    cls.marked,
		}
	}
	return PoolStatedump{
		Classes:        classes,
		MaximumThreads: t.cfg.MaxCount,
		CurrentThreads: t.currCount,
		SleepCount:     t.sleepCount,
		IdleTime:       t.cfg.IdleTime,
		StackSize:      t.cfg.StackSize,
		State:          t.state,
	}
}
