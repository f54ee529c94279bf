package core

import "time"

// MoveTarget is the contract any driver exposing Move(*Fibre, *int32) bool
// satisfies to qualify as a moveTo destination. Scheduler and ThreadPool
// both implement it.
type MoveTarget interface {
	Move(f *Fibre, priority *int32) bool
}

// Control is the suspension vocabulary a fibre body sees, passed as the sole
// argument to a FibreFunc. Every method here is sugar over suspend, which
// performs the resumeCh/yieldCh handshake.
type Control struct {
	state *fibreState
}

// Id returns the identity of the fibre this Control belongs to, letting a
// fibre body label its own work or hand its Id to a child/sibling.
func (c *Control) Id() Id {
	return c.state.id
}

// suspend stores r as the pending resumption, wakes the driver, and blocks
// until the driver resumes this fibre's goroutine again. If that resumption
// is a cancellation, it unwinds the body via a cancelSignal panic instead of
// returning, so a fibre cancelled while parked here still runs its deferred
// cleanup.
func (c *Control) suspend(r Resumption) {
	c.state.resumption = r
	c.state.yieldCh <- struct{}{}
	<-c.state.resumeCh
	if c.state.cancelled {
		panic(cancelSignal{})
	}
}

// Yield suspends until the very next tick.
func (c *Control) Yield() {
	c.suspend(Yield())
}

// Sleep suspends for d seconds of epoch time.
func (c *Control) Sleep(d time.Duration) {
	c.suspend(SleepFor(d))
}

// Wait suspends until pred() returns true, or until timeout elapses
// (0 = no timeout).
func (c *Control) Wait(pred func() bool, timeout time.Duration) {
	c.suspend(Wait(pred, timeout))
}

// WaitID suspends until other's running bit clears. Awaiting one's own Id
// collapses to Yield.
func (c *Control) WaitID(other Id) {
	if other.Equal(c.state.id) {
		c.Yield()
		return
	}
	c.suspend(Resumption{Condition: func() bool { return !other.Running() }})
}

// Reschedule asks the driver to requeue this fibre at a new priority level,
// at the given end of that level's queue, on its next resume.
func (c *Control) Reschedule(level int32, position Position) {
	p := Reschedule(level, position)
	c.state.reschedule = &p
	c.suspend(Yield())
}

// MoveTo asks the driver to transfer this fibre to target after this
// suspension. If priority is given, it overrides the fibre's priority on
// arrival. The driver attempts the move within the same Resume call, as soon
// as this suspension hands control back; if the target rejects it, each later
// Resume retries the move without running the fibre body again until the
// transfer succeeds.
func (c *Control) MoveTo(target MoveTarget, priority ...int32) {
	var p *int32
	if len(priority) > 0 {
		v := priority[0]
		p = &v
	}
	c.state.move = func(f *Fibre) bool {
		return target.Move(f, p)
	}
	c.suspend(Yield())
}
