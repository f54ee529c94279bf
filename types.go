package fibre

import "github.com/gofibre/runtime/core"

// Re-exports of the core package's types, so most callers only need to
// import the root fibre package.

// Id is a fibre's stable identity handle.
type Id = core.Id

// Fibre is an owning wrapper around a suspended or running coroutine.
type Fibre = core.Fibre

// FibreFunc is the body of a fibre.
type FibreFunc = core.FibreFunc

// Control is the suspension vocabulary passed into a FibreFunc.
type Control = core.Control

// MoveTarget is the contract any cross-scheduler migration destination
// satisfies; Scheduler and ThreadPool both implement it.
type MoveTarget = core.MoveTarget

// Position names an end of a queue: Front or Back.
type Position = core.Position

// Priority names a priority level plus queue-end for a Reschedule request.
type Priority = core.Priority

// Mode is the outcome of a single fibre resumption.
type Mode = core.Mode

// Resume is the result of a driver's Resume call on a fibre.
type Resume = core.Resume

// Scheduler is the single-threaded multi-priority fibre driver.
type Scheduler = core.Scheduler

// SchedulerParams configures a Scheduler's construction.
type SchedulerParams = core.SchedulerParams

// ThreadPool is the multi-worker fibre driver.
type ThreadPool = core.ThreadPool

// ThreadPoolParams configures a ThreadPool's construction.
type ThreadPoolParams = core.ThreadPoolParams

// ExceptionMode selects how a driver reacts to an uncaught fibre exception.
type ExceptionMode = core.ExceptionMode

// DriverConfig bundles the optional hooks a Scheduler or ThreadPool calls.
type DriverConfig = core.DriverConfig

// Clock is a seam over wall-clock or simulated epoch time.
type Clock = core.Clock

// Log is the leveled logging facade a driver reports through.
type Log = core.Log

// Field is a single structured logging key/value pair.
type Field = core.Field

const (
	// Front requests the front of a queue.
	Front = core.Front
	// Back requests the back of a queue.
	Back = core.Back
)

const (
	// ModeLog logs an uncaught fibre exception and drops the fibre.
	ModeLog = core.ModeLog
	// ModeRethrow propagates an uncaught fibre exception out of Update.
	ModeRethrow = core.ModeRethrow
)

const (
	// Expire means the fibre finished, was cancelled, or its exception was
	// dropped.
	Expire = core.Expire
	// Sleep means the fibre's resumption condition was unmet.
	Sleep = core.Sleep
	// Continue means the fibre ran and yielded again.
	Continue = core.Continue
	// Moved means the fibre was transferred to another driver.
	Moved = core.Moved
	// Exception means the fibre raised an uncaught panic.
	Exception = core.Exception
)

// NewFibre constructs a fibre around body.
var NewFibre = core.NewFibre

// NewScheduler constructs a Scheduler.
var NewScheduler = core.NewScheduler

// NewThreadPool constructs a ThreadPool.
var NewThreadPool = core.NewThreadPool

// DefaultDriverConfig returns a DriverConfig with every hook set to its
// default implementation; the default Metrics is NilMetrics, which discards
// every call.
var DefaultDriverConfig = core.DefaultDriverConfig

// NewClock returns a Clock driven by the real wall clock.
var NewClock = core.NewClock

// NewSimulatedClock returns a Clock the caller advances manually.
var NewSimulatedClock = core.NewSimulatedClock

// F builds a structured logging Field.
var F = core.F
