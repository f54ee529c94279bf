package core

// QueueDepth reports the size of one priority level's queue at a point in
// time, used by both SchedulerStats and ThreadPoolStats.
type QueueDepth struct {
	Priority int32
	Depth    int
}

// SchedulerStats is a snapshot of a Scheduler's runtime state.
type SchedulerStats struct {
	Name         string
	Queues       []QueueDepth
	MoveQueued   int
	MoveCapacity int
	Resumed      int64
	Expired      int64
	Exceptions   int64
}

// ThreadPoolStats is a snapshot of a ThreadPool's runtime state.
type ThreadPoolStats struct {
	Name       string
	Workers    int
	Queues     []QueueDepth
	Resumed    int64
	Expired    int64
	Exceptions int64
	MovesOK    int64
	MovesFull  int64
}
