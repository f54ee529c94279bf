// Package fibre provides a cooperative, stackful-coroutine-style concurrency
// runtime for Go, inspired by morai's fibre scheduling model.
//
// Unlike goroutines, a fibre only ever yields control at an explicit
// suspension point (Yield, Sleep, Wait, WaitID, Reschedule or MoveTo), so
// code running between suspension points never needs a mutex to protect
// state it alone touches. The runtime supplies the stackful part goroutines
// already give you; fibres add the cooperative scheduling and priority
// queues a Chromium-style task runner gives you, specialised to the case
// where a unit of work can suspend mid-function rather than only between
// tasks.
//
// # Quick Start
//
// Drive a single-threaded Scheduler yourself, ticking it with your own
// clock:
//
//	sched := fibre.NewScheduler("main", fibre.SchedulerParams{
//		PriorityLevels: []int32{0, 1, 2},
//	}, fibre.ModeLog, fibre.DefaultDriverConfig())
//
//	f := fibre.NewFibre(func(ctl *fibre.Control) {
//		for i := 0; i < 3; i++ {
//			println("tick", i)
//			ctl.Yield()
//		}
//	})
//	sched.Start(&f, 0, "ticker")
//
//	for !sched.Empty() {
//		sched.Update(nextEpoch())
//	}
//
// Or run fibres across a pool of worker goroutines:
//
//	fibre.InitGlobalThreadPool(4)
//	defer fibre.ShutdownGlobalThreadPool()
//
//	g := fibre.NewFibre(func(ctl *fibre.Control) { ctl.Sleep(time.Second) })
//	fibre.GetGlobalThreadPool().Start(&g, 0, "worker-fibre")
//
// # Key Concepts
//
// Id is a fibre's stable identity, usable as a map key or to await another
// fibre's completion via Control.WaitID.
//
// Control is the only thing a fibre body touches to suspend; it is the
// fibre-scheduling analogue of TaskRunner in a task-queue design.
//
// Scheduler and ThreadPool both implement MoveTarget, so a running fibre can
// migrate between either kind of driver via Control.MoveTo without the
// caller needing to special-case which kind of driver it is leaving or
// entering.
package fibre
