package core

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ThreadPoolParams configures a ThreadPool's construction. WorkerCount of 0
// means no automatic workers: drive the pool with Update/UpdateFor manually.
// A positive value starts that many workers. A negative value N starts
// runtime.NumCPU()+N workers, clamped to at least 1.
type ThreadPoolParams struct {
	SchedulerParams
	WorkerCount       int
	IdleSleepDuration time.Duration
}

// weightedSlots builds the priority-selection array: for N declared priority
// levels, the level at ascending index i appears (N-i) times, so
// lower-index (lower-priority-number, i.e. more urgent) levels are sampled
// more often by a worker's rotating cursor.
func weightedSlots(n int) []int {
	slots := make([]int, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for c := 0; c < n-i; c++ {
			slots = append(slots, i)
		}
	}
	return slots
}

// ThreadPool is the multi-worker fibre driver: each priority level gets its
// own lock-free SharedQueue, and a pool of worker goroutines pull from those
// queues via a shared weighted selection array, so lower-numbered (more
// urgent) priority levels are polled more often while every level is still
// polled at least once per pass over the array.
type ThreadPool struct {
	name   string
	queues []*SharedQueue // sorted ascending by priority, parallel to slots
	slots  []int          // weighted priority-index selection order
	mode   ExceptionMode
	cfg    *DriverConfig
	clock  *Clock

	idleSleep   time.Duration
	workerCount int

	cursor atomic.Uint64 // shared rotating index into slots

	wg      sync.WaitGroup
	pausing atomic.Bool
	quit    atomic.Bool

	resumed    atomic.Int64
	expired    atomic.Int64
	exceptions atomic.Int64
	movesOK    atomic.Int64
	movesFull  atomic.Int64
}

// NewThreadPool constructs a ThreadPool with its priority queues created
// eagerly and, if WorkerCount > 0, starts that many worker goroutines
// immediately.
func NewThreadPool(name string, params ThreadPoolParams, mode ExceptionMode, cfg *DriverConfig) *ThreadPool {
	levels := append([]int32(nil), params.PriorityLevels...)
	if len(levels) == 0 {
		levels = []int32{0}
	}
	sortInt32s(levels)

	capacity := params.InitialQueueSize
	if capacity <= 0 {
		capacity = 256
	}
	idleSleep := params.IdleSleepDuration
	if idleSleep <= 0 {
		idleSleep = time.Millisecond
	}

	tp := &ThreadPool{
		name:      name,
		mode:      mode,
		cfg:       cfg.withDefaults(),
		clock:     NewClock(),
		idleSleep: idleSleep,
	}
	for _, level := range levels {
		tp.queues = append(tp.queues, NewSharedQueue(level, capacity))
	}
	tp.slots = weightedSlots(len(tp.queues))

	workers := params.WorkerCount
	if workers < 0 {
		workers = runtime.NumCPU() + workers
		if workers < 1 {
			workers = 1
		}
	}
	tp.workerCount = workers
	for i := 0; i < workers; i++ {
		tp.wg.Add(1)
		go tp.workerLoop(i)
	}
	return tp
}

// WorkerCount returns the number of automatically driven worker goroutines
// (0 if the pool is manually driven via Update/UpdateFor).
func (tp *ThreadPool) WorkerCount() int { return tp.workerCount }

// Name returns the pool's diagnostic name.
func (tp *ThreadPool) Name() string { return tp.name }

func (tp *ThreadPool) selectQueue(priority int32, quiet bool) *SharedQueue {
	best := 0
	for i, q := range tp.queues {
		switch {
		case priority == q.Priority():
			return q
		case priority > q.Priority():
			best = i
		default:
			i = len(tp.queues)
		}
	}
	q := tp.queues[best]
	if !quiet {
		tp.cfg.Log.Error("ThreadPool: fibre priority mismatch",
			F("pool", tp.name), F("requested", priority), F("assigned", q.Priority()))
	}
	return q
}

// Start assigns priority and name, then enqueues f. If the target queue is
// momentarily full, Start retries after IdleSleepDuration rather than
// dropping the fibre: backpressure, not loss.
func (tp *ThreadPool) Start(f *Fibre, priority int32, name string) Id {
	f.setPriority(priority)
	f.SetName(name)
	id := f.Id()
	q := tp.selectQueue(priority, false)
	for !q.TryPush(f) {
		time.Sleep(tp.idleSleep)
	}
	return id
}

// Move implements MoveTarget.
func (tp *ThreadPool) Move(f *Fibre, priority *int32) bool {
	if priority != nil {
		f.setPriority(*priority)
	}
	q := tp.selectQueue(f.Priority(), true)
	ok := q.TryPush(f)
	tp.cfg.Metrics.RecordMove(tp.name, ok)
	if ok {
		tp.movesOK.Add(1)
		return true
	}
	tp.movesFull.Add(1)
	if tp.cfg.MoveRejectedHandler != nil {
		tp.cfg.MoveRejectedHandler.HandleMoveRejected(tp.name, "target queue full")
	}
	return false
}

// workerLoop is a single worker's pull-resume-dispatch cycle: pull work, run
// it, repeat until told to quit.
func (tp *ThreadPool) workerLoop(id int) {
	defer tp.wg.Done()

	for !tp.quit.Load() {
		if tp.pausing.Load() {
			time.Sleep(tp.idleSleep)
			continue
		}

		fibre, ok := tp.pull()
		if !ok {
			time.Sleep(tp.idleSleep)
			continue
		}
		tp.process(&fibre)
	}
}

// pull advances the shared rotating cursor one step and pops from the queue
// it names, giving every worker an independent view into the same weighted
// sequence without two workers ever claiming the same cursor position.
func (tp *ThreadPool) pull() (Fibre, bool) {
	idx := tp.cursor.Add(1) % uint64(len(tp.slots))
	q := tp.queues[tp.slots[idx]]
	f := q.Pop()
	return f, f.Valid()
}

// process runs one Resume cycle for fibre and dispatches by outcome. Unlike
// Scheduler, a ThreadPool never rethrows: an exception always logs and
// drops, since there is no single caller goroutine to propagate a panic to.
func (tp *ThreadPool) process(fibre *Fibre) {
	priority := fibre.Priority()
	now := tp.clock.Update()
	start := time.Now()
	resume := fibre.Resume(now)
	tp.cfg.Metrics.RecordResume(tp.name, priority, time.Since(start).Seconds())
	tp.resumed.Add(1)

	switch resume.Mode {
	case Expire, Moved:
		tp.expired.Add(1)
		tp.cfg.Metrics.RecordExpire(tp.name, priority)
		return
	case Exception:
		tp.exceptions.Add(1)
		tp.cfg.Metrics.RecordException(tp.name, priority)
		if h := tp.cfg.PanicHandler; h != nil {
			h.HandlePanic(fibre.Name(), fibre.Id(), fibre.Exception(), fibre.ExceptionStack())
		}
		tp.cfg.Log.Error("ThreadPool: fibre raised an uncaught exception",
			F("pool", tp.name), F("fibre", fibre.Name()), F("id", fibre.Id()),
			F("exception", fibre.Exception()))
		return
	}

	target := fibre.Priority()
	if resume.Reschedule != nil {
		target = resume.Reschedule.Level
	}
	q := tp.selectQueue(target, true)
	fibre.setPriority(target)
	for !q.TryPush(fibre) {
		// Target momentarily full: re-resume is wrong (it would run the body
		// again); spin briefly and retry the push instead.
		time.Sleep(tp.idleSleep)
	}
}

// Update drains and processes fibres from every queue until predicate
// returns false, for the WorkerCount==0 drive-it-yourself mode.
func (tp *ThreadPool) Update(predicate func() bool) {
	for predicate() {
		fibre, ok := tp.pull()
		if !ok {
			return
		}
		tp.process(&fibre)
	}
}

// UpdateFor calls Update with a predicate bounded by wall-clock timeSlice.
func (tp *ThreadPool) UpdateFor(timeSlice time.Duration) {
	deadline := time.Now().Add(timeSlice)
	tp.Update(func() bool { return time.Now().Before(deadline) })
}

// Empty reports whether every priority queue is currently (approximately)
// empty.
func (tp *ThreadPool) Empty() bool {
	for _, q := range tp.queues {
		if q.Len() > 0 {
			return false
		}
	}
	return true
}

// Wait blocks, polling at IdleSleepDuration, until Empty() or timeout
// elapses (nil timeout waits indefinitely).
func (tp *ThreadPool) Wait(timeout *time.Duration) bool {
	var deadline time.Time
	if timeout != nil {
		deadline = time.Now().Add(*timeout)
	}
	for !tp.Empty() {
		if timeout != nil && !time.Now().Before(deadline) {
			return false
		}
		time.Sleep(tp.idleSleep)
	}
	return true
}

// CancelAll pauses dispatch, then cancels every queued fibre: one that never
// started has its running bit cleared and is dropped outright, one already
// started is flagged cancelled and requeued so a worker naturally resumes
// it into cleanup-and-expire once dispatch resumes.
func (tp *ThreadPool) CancelAll() {
	tp.pausing.Store(true)
	defer tp.pausing.Store(false)
	for _, q := range tp.queues {
		var toRequeue []Fibre
		for f := q.Pop(); f.Valid(); f = q.Pop() {
			if f.state.started {
				f.state.cancelled = true
				toRequeue = append(toRequeue, f)
			} else {
				f.state.id.setRunning(false)
			}
		}
		for i := range toRequeue {
			q.TryPush(&toRequeue[i])
		}
	}
}

// Stop signals every worker to exit after its current fibre, drains the
// queues via lfq's Drain so blocked Dequeue calls return, and waits for all
// worker goroutines to finish.
func (tp *ThreadPool) Stop() {
	tp.quit.Store(true)
	for _, q := range tp.queues {
		q.Drain()
	}
	tp.wg.Wait()
}

// Stats returns a snapshot of this pool's runtime state.
func (tp *ThreadPool) Stats() ThreadPoolStats {
	stats := ThreadPoolStats{
		Name:       tp.name,
		Workers:    tp.workerCount,
		Resumed:    tp.resumed.Load(),
		Expired:    tp.expired.Load(),
		Exceptions: tp.exceptions.Load(),
		MovesOK:    tp.movesOK.Load(),
		MovesFull:  tp.movesFull.Load(),
	}
	for _, q := range tp.queues {
		depth := q.Len()
		stats.Queues = append(stats.Queues, QueueDepth{Priority: q.Priority(), Depth: depth})
		tp.cfg.Metrics.RecordQueueDepth(tp.name, q.Priority(), depth)
	}
	return stats
}
