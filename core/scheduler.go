package core

import "time"

// ExceptionMode selects how a Scheduler's update() reacts to a fibre that
// raised an uncaught exception.
type ExceptionMode int

const (
	// ModeLog logs the exception and drops the fibre.
	ModeLog ExceptionMode = iota
	// ModeRethrow propagates the exception out of update() by re-panicking
	// with the captured value; the caller is responsible for recovering.
	ModeRethrow
)

// SchedulerParams configures a Scheduler's construction. PriorityLevels
// need not be sorted; NewScheduler sorts a copy. An empty PriorityLevels
// creates a single queue at priority 0.
type SchedulerParams struct {
	InitialQueueSize int
	MoveQueueSize    int
	PriorityLevels   []int32
}

// Scheduler is the single-threaded multi-priority fibre driver. All of its
// state (queues, timekeeper, owned fibres) may be touched only from the
// goroutine calling Update/Start/Cancel*. The inbound move queue is the
// sole thread-safe surface.
type Scheduler struct {
	name      string
	queues    []*FibreQueue // sorted ascending by priority
	moveQueue *SharedQueue
	mode      ExceptionMode
	cfg       *DriverConfig

	epoch, dt float64

	resumed    int64
	expired    int64
	exceptions int64
}

// NewScheduler constructs a Scheduler, eagerly creating its priority
// queues.
func NewScheduler(name string, params SchedulerParams, mode ExceptionMode, cfg *DriverConfig) *Scheduler {
	levels := append([]int32(nil), params.PriorityLevels...)
	if len(levels) == 0 {
		levels = []int32{0}
	}
	sortInt32s(levels)

	s := &Scheduler{
		name:      name,
		mode:      mode,
		cfg:       cfg.withDefaults(),
		moveQueue: NewSharedQueue(0, max(2, params.MoveQueueSize)),
	}
	for _, level := range levels {
		s.queues = append(s.queues, NewFibreQueue(level, params.InitialQueueSize))
	}
	return s
}

func sortInt32s(xs []int32) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// Name returns the scheduler's diagnostic name.
func (s *Scheduler) Name() string { return s.name }

// selectQueue finds the queue exactly matching priority, or the queue with
// the greatest priority not exceeding it (falling back to the lowest queue
// if priority is below every declared level), logging a mismatch unless
// quiet.
func (s *Scheduler) selectQueue(priority int32, quiet bool) *FibreQueue {
	best := 0
	for i, q := range s.queues {
		switch {
		case priority == q.Priority():
			return q
		case priority > q.Priority():
			best = i
		default:
			// priority < q.Priority(): queues are sorted ascending, so no
			// further queue can match or improve on best.
			i = len(s.queues)
		}
	}
	q := s.queues[best]
	if !quiet {
		s.cfg.Log.Error("Scheduler: fibre priority mismatch",
			F("scheduler", s.name), F("requested", priority), F("assigned", q.Priority()))
	}
	return q
}

// Start assigns priority and name, enqueues f onto the matching priority
// queue (Back), and returns its Id. f is consumed: it becomes the invalid
// sentinel in the caller's variable.
func (s *Scheduler) Start(f *Fibre, priority int32, name string) Id {
	f.setPriority(priority)
	f.SetName(name)
	id := f.Id()
	s.selectQueue(priority, false).Push(f, Back)
	return id
}

// Cancel marks an in-flight fibre for drop on its next pop, searching every
// queue in declared order. Returns false for an unknown Id; that is not an
// error.
func (s *Scheduler) Cancel(id Id) bool {
	if !id.Valid() {
		return false
	}
	for _, q := range s.queues {
		if q.Cancel(id) {
			return true
		}
	}
	return false
}

// CancelIds cancels every Id in ids, returning the count actually removed.
func (s *Scheduler) CancelIds(ids []Id) int {
	n := 0
	for _, id := range ids {
		if s.Cancel(id) {
			n++
		}
	}
	return n
}

// CancelAll cancels every fibre this scheduler owns, including ones in
// flight on the move queue. A not-yet-started fibre has its running bit
// cleared and is dropped immediately; a started one is flagged cancelled
// and left to unwind through its deferred cleanup on the next Update, so a
// fibre elsewhere blocked on WaitID for one of these still sees its running
// bit clear instead of hanging forever.
func (s *Scheduler) CancelAll() {
	for f := s.moveQueue.Pop(); f.Valid(); f = s.moveQueue.Pop() {
		s.selectQueue(f.Priority(), true).Push(&f, Back)
	}
	for _, q := range s.queues {
		q.cancelAllEntries()
	}
}

// pumpMoveQueue drains one pending fibre from the move queue, if any, into
// its matching priority queue.
func (s *Scheduler) pumpMoveQueue() {
	f := s.moveQueue.Pop()
	if !f.Valid() {
		return
	}
	s.selectQueue(f.Priority(), true).Push(&f, Back)
}

// Update drains the move queue, then drains each priority queue ascending.
func (s *Scheduler) Update(epochTimeS float64) {
	s.dt = epochTimeS - s.epoch
	s.epoch = epochTimeS

	for f := s.moveQueue.Pop(); f.Valid(); f = s.moveQueue.Pop() {
		s.selectQueue(f.Priority(), true).Push(&f, Back)
	}
	for _, q := range s.queues {
		s.updateQueue(epochTimeS, q)
	}
}

func (s *Scheduler) updateQueue(epochTimeS float64, queue *FibreQueue) {
	s.pumpMoveQueue()

	expiredCount := 0
	for i := 0; i < queue.Size()+expiredCount; i++ {
		s.pumpMoveQueue()

		fibre := queue.Pop()
		priority := fibre.Priority()
		start := time.Now()
		resume := fibre.Resume(epochTimeS)
		s.cfg.Metrics.RecordResume(s.name, priority, time.Since(start).Seconds())
		s.resumed++

		switch resume.Mode {
		case Expire, Moved:
			expiredCount++
			s.expired++
			s.cfg.Metrics.RecordExpire(s.name, priority)
			continue
		case Exception:
			s.exceptions++
			s.cfg.Metrics.RecordException(s.name, priority)
			s.handleException(&fibre)
			expiredCount++
			continue
		}

		if resume.Reschedule != nil {
			reschedule := *resume.Reschedule
			if reschedule.Level != fibre.Priority() {
				newQueue := s.selectQueue(reschedule.Level, true)
				if newQueue != queue {
					fibre.setPriority(reschedule.Level)
					newQueue.Push(&fibre, reschedule.Position)
					expiredCount++
					continue
				}
			}
			// Same queue, possibly Front-requested: honor the requested
			// position instead of always appending to the tail.
			queue.Push(&fibre, reschedule.Position)
			continue
		}

		// Continue or Sleep, no reschedule requested: push back to the tail.
		queue.Push(&fibre, Back)
	}
}

func (s *Scheduler) handleException(fibre *Fibre) {
	if h := s.cfg.PanicHandler; h != nil {
		h.HandlePanic(fibre.Name(), fibre.Id(), fibre.Exception(), fibre.ExceptionStack())
	}
	if s.mode == ModeRethrow {
		panic(fibre.Exception())
	}
	s.cfg.Log.Error("Scheduler: fibre raised an uncaught exception",
		F("scheduler", s.name), F("fibre", fibre.Name()), F("id", fibre.Id()),
		F("exception", fibre.Exception()))
}

// Move implements MoveTarget: it tries to push f onto the inbound move
// queue. The priority override, if given, is applied to the fibre before
// the handle is handed to the queue: set priority on the handle that is
// already moving, never on the caller's now-invalid residual.
func (s *Scheduler) Move(f *Fibre, priority *int32) bool {
	if priority != nil {
		f.setPriority(*priority)
	}
	ok := s.moveQueue.TryPush(f)
	s.cfg.Metrics.RecordMove(s.name, ok)
	if ok {
		return true
	}
	if s.cfg.MoveRejectedHandler != nil {
		s.cfg.MoveRejectedHandler.HandleMoveRejected(s.name, "move queue full")
	}
	return false
}

// Time returns the last Update call's (epoch, dt).
func (s *Scheduler) Time() (epoch, dt float64) { return s.epoch, s.dt }

// Empty reports whether every priority queue is empty. The move queue is not
// consulted: peeking it would require popping, which cannot be undone
// without perturbing FIFO order for other producers.
func (s *Scheduler) Empty() bool {
	for _, q := range s.queues {
		if !q.Empty() {
			return false
		}
	}
	return true
}

// Stats returns a snapshot of this scheduler's runtime state.
func (s *Scheduler) Stats() SchedulerStats {
	stats := SchedulerStats{
		Name:         s.name,
		MoveQueued:   s.moveQueue.Len(),
		MoveCapacity: s.moveQueue.Cap(),
		Resumed:      s.resumed,
		Expired:      s.expired,
		Exceptions:   s.exceptions,
	}
	for _, q := range s.queues {
		stats.Queues = append(stats.Queues, QueueDepth{Priority: q.Priority(), Depth: q.Size()})
		s.cfg.Metrics.RecordQueueDepth(s.name, q.Priority(), q.Size())
	}
	return stats
}

