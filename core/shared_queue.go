package core

import (
	"sync/atomic"

	"code.hybscloud.com/lfq"
)

// SharedQueue is a bounded, lock-free, multi-producer multi-consumer queue
// of raw fibre handles. It is backed directly by code.hybscloud.com/lfq's
// MPMC queue: a *fibreState is already Go's equivalent of a raw coroutine
// handle, so pushing it through lfq is a zero-translation fit for a queue
// that stores raw fibre handles rather than owning wrappers.
type SharedQueue struct {
	priority int32
	inner    lfq.Queue[*fibreState]
	approx   atomic.Int64 // approximate length; lfq deliberately has no exact Len
}

// NewSharedQueue returns a SharedQueue labelled priority with the given
// fixed capacity (rounded up to the next power of two by lfq.NewMPMC).
func NewSharedQueue(priority int32, capacity int) *SharedQueue {
	return &SharedQueue{priority: priority, inner: lfq.NewMPMC[*fibreState](capacity)}
}

// Priority returns the label this queue was constructed with.
func (q *SharedQueue) Priority() int32 { return q.priority }

// Cap returns the queue's fixed capacity.
func (q *SharedQueue) Cap() int { return q.inner.Cap() }

// TryPush attempts to enqueue the fibre named by f. On success it releases
// f's ownership (f becomes the invalid sentinel) and returns true. On
// failure, because the queue is full, f is left untouched and false is
// returned: nothing is mutated until success is confirmed.
func (q *SharedQueue) TryPush(f *Fibre) bool {
	if f.state == nil {
		return false
	}
	st := f.state
	if err := q.inner.Enqueue(&st); err != nil {
		return false
	}
	f.state = nil
	q.approx.Add(1)
	return true
}

// Pop removes and returns the next fibre, or the invalid sentinel Fibre if
// the queue is empty.
func (q *SharedQueue) Pop() Fibre {
	st, err := q.inner.Dequeue()
	if err != nil {
		return Fibre{}
	}
	q.approx.Add(-1)
	return fromState(st)
}

// Len returns an approximate occupancy, for diagnostics only: lfq's queues
// deliberately expose no exact length under concurrent access, so this is a
// best-effort counter that can race with concurrent push/pop.
func (q *SharedQueue) Len() int {
	if n := q.approx.Load(); n > 0 {
		return int(n)
	}
	return 0
}

// Clear drains and discards every handle currently queued.
func (q *SharedQueue) Clear() {
	for {
		if _, err := q.inner.Dequeue(); err != nil {
			return
		}
		q.approx.Add(-1)
	}
}

// Drain signals the underlying lfq queue that no further pushes will occur,
// letting consumers dequeue remaining items without threshold blocking.
// Used during ThreadPool shutdown.
func (q *SharedQueue) Drain() {
	if d, ok := q.inner.(lfq.Drainer); ok {
		d.Drain()
	}
}
