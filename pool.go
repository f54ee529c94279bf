package fibre

import (
	"runtime"
	"sync"
	"time"

	"github.com/gofibre/runtime/core"
)

// Global Thread Pool Helper (Singleton)

var (
	globalThreadPool *core.ThreadPool
	globalMu         sync.Mutex
)

// InitGlobalThreadPool initializes the global ThreadPool with workers worker
// goroutines spread across the given priority levels (default: a single
// level, 0) and starts it immediately. A workers value <= 0 uses
// runtime.NumCPU(), mirroring the teacher's InitGlobalThreadPool(workers)
// convenience shape while following the runtime's own
// zero-means-manual-drive convention at the ThreadPool constructor level.
func InitGlobalThreadPool(workers int, priorityLevels ...int32) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if len(priorityLevels) == 0 {
		priorityLevels = []int32{0}
	}

	globalThreadPool = core.NewThreadPool("global-pool", core.ThreadPoolParams{
		SchedulerParams: core.SchedulerParams{
			PriorityLevels: priorityLevels,
		},
		WorkerCount:       workers,
		IdleSleepDuration: time.Millisecond,
	}, core.ModeLog, core.DefaultDriverConfig())
}

// GetGlobalThreadPool returns the global ThreadPool instance. It panics if
// InitGlobalThreadPool has not been called.
func GetGlobalThreadPool() *core.ThreadPool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool == nil {
		panic("fibre: GlobalThreadPool not initialized. Call InitGlobalThreadPool() first.")
	}
	return globalThreadPool
}

// ShutdownGlobalThreadPool stops the global ThreadPool, waiting for every
// worker goroutine to exit.
func ShutdownGlobalThreadPool() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalThreadPool != nil {
		globalThreadPool.Stop()
		globalThreadPool = nil
	}
}

// Spawn starts body on the global ThreadPool at the given priority and
// returns its Id. This is the recommended entry point for fire-and-forget
// fibres; InitGlobalThreadPool must have been called first.
func Spawn(priority int32, name string, body FibreFunc) Id {
	f := NewFibre(body)
	return GetGlobalThreadPool().Start(&f, priority, name)
}
