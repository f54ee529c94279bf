package core

import "fmt"

// PanicHandler observes a recovered panic from inside a fibre body. It is
// called once per captured exception, before the Scheduler/ThreadPool
// applies its Exception policy.
type PanicHandler interface {
	HandlePanic(fibreName string, id Id, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints the panic and its stack trace to stdout.
type DefaultPanicHandler struct{}

func (DefaultPanicHandler) HandlePanic(fibreName string, id Id, panicInfo any, stackTrace []byte) {
	fmt.Printf("[fibre %s %s] panic: %v\n%s\n", id, fibreName, panicInfo, stackTrace)
}

// NoOpPanicHandler discards panic notifications.
type NoOpPanicHandler struct{}

func (NoOpPanicHandler) HandlePanic(string, Id, any, []byte) {}

// RuntimeMetrics has no bearing on scheduler/pool behaviour; it exists
// purely so operators can observe the runtime.
type RuntimeMetrics interface {
	RecordResume(driverName string, priority int32, dur float64)
	RecordExpire(driverName string, priority int32)
	RecordException(driverName string, priority int32)
	RecordMove(driverName string, ok bool)
	RecordQueueDepth(driverName string, priority int32, depth int)
}

// NilMetrics discards every call. The default for Scheduler/ThreadPool.
type NilMetrics struct{}

func (NilMetrics) RecordResume(string, int32, float64)    {}
func (NilMetrics) RecordExpire(string, int32)             {}
func (NilMetrics) RecordException(string, int32)          {}
func (NilMetrics) RecordMove(string, bool)                {}
func (NilMetrics) RecordQueueDepth(string, int32, int)    {}

// MoveRejectedHandler observes a failed cross-scheduler move. A rejected
// move is automatically retried on the fibre's next resume, so this hook is
// purely informational, for callers who want visibility into sustained
// backpressure.
type MoveRejectedHandler interface {
	HandleMoveRejected(driverName string, reason string)
}

// DefaultMoveRejectedHandler prints a line to stdout.
type DefaultMoveRejectedHandler struct{}

func (DefaultMoveRejectedHandler) HandleMoveRejected(driverName string, reason string) {
	fmt.Printf("[%s] move rejected: %s\n", driverName, reason)
}

// NoOpMoveRejectedHandler discards the notification.
type NoOpMoveRejectedHandler struct{}

func (NoOpMoveRejectedHandler) HandleMoveRejected(string, string) {}

// DriverConfig bundles the optional hook triad shared by Scheduler and
// ThreadPool construction.
type DriverConfig struct {
	PanicHandler        PanicHandler
	Metrics             RuntimeMetrics
	MoveRejectedHandler MoveRejectedHandler
	Log                 *Log
}

// DefaultDriverConfig returns a config with every default/no-op
// implementation filled in and a fresh Log.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		PanicHandler:        DefaultPanicHandler{},
		Metrics:             NilMetrics{},
		MoveRejectedHandler: DefaultMoveRejectedHandler{},
		Log:                 NewLog(),
	}
}

func (c *DriverConfig) withDefaults() *DriverConfig {
	if c == nil {
		return DefaultDriverConfig()
	}
	out := *c
	if out.PanicHandler == nil {
		out.PanicHandler = DefaultPanicHandler{}
	}
	if out.Metrics == nil {
		out.Metrics = NilMetrics{}
	}
	if out.MoveRejectedHandler == nil {
		out.MoveRejectedHandler = DefaultMoveRejectedHandler{}
	}
	if out.Log == nil {
		out.Log = NewLog()
	}
	return &out
}
