package core

import "testing"

func quietConfig() *DriverConfig {
	cfg := DefaultDriverConfig()
	cfg.Log.SetActiveLevel(LevelFatal + 1)
	cfg.PanicHandler = NoOpPanicHandler{}
	cfg.MoveRejectedHandler = NoOpMoveRejectedHandler{}
	return cfg
}

func TestScheduler_StartAssignsToExactPriorityQueue(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{PriorityLevels: []int32{0, 5, 10}}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) { ctl.Yield() })
	s.Start(&f, 5, "worker")

	stats := s.Stats()
	var depth5 int
	for _, q := range stats.Queues {
		if q.Priority == 5 {
			depth5 = q.Depth
		}
	}
	if depth5 != 1 {
		t.Fatalf("priority-5 queue depth = %d, want 1", depth5)
	}
}

func TestScheduler_StartFallsBackToClosestLowerPriority(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{PriorityLevels: []int32{0, 10}}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) { ctl.Yield() })
	s.Start(&f, 7, "worker")

	stats := s.Stats()
	var depth0, depth10 int
	for _, q := range stats.Queues {
		switch q.Priority {
		case 0:
			depth0 = q.Depth
		case 10:
			depth10 = q.Depth
		}
	}
	if depth0 != 1 || depth10 != 0 {
		t.Fatalf("depths = {0:%d 10:%d}, want {0:1 10:0} (7 falls back to the 0 queue)", depth0, depth10)
	}
}

func TestScheduler_UpdateResumesUntilExpire(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{}, ModeLog, quietConfig())
	var runs int
	f := NewFibre(func(ctl *Control) {
		for i := 0; i < 3; i++ {
			runs++
			ctl.Yield()
		}
	})
	s.Start(&f, 0, "looper")

	for i := 0; i < 4; i++ {
		s.Update(float64(i))
	}
	if runs != 3 {
		t.Fatalf("body ran %d times, want 3", runs)
	}
	if !s.Empty() {
		t.Fatal("scheduler not Empty() after its only fibre expired")
	}
}

func TestScheduler_CancelRemovesQueuedFibreBeforeItRuns(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{}, ModeLog, quietConfig())
	var ran bool
	f := NewFibre(func(ctl *Control) { ran = true })
	id := s.Start(&f, 0, "cancelme")

	if !s.Cancel(id) {
		t.Fatal("Cancel() of a queued fibre returned false")
	}
	s.Update(1)
	if ran {
		t.Fatal("cancelled fibre's body ran")
	}
}

func TestScheduler_CancelUnknownIdReturnsFalse(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{}, ModeLog, quietConfig())
	if s.Cancel(newId()) {
		t.Fatal("Cancel() of an unknown Id returned true")
	}
}

func TestScheduler_RescheduleMovesFibreToDifferentQueue(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{PriorityLevels: []int32{0, 5}}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) {
		ctl.Reschedule(5, Back)
		ctl.Yield()
	})
	s.Start(&f, 0, "promoted")

	s.Update(0) // body runs, requests reschedule to priority 5
	stats := s.Stats()
	var depth0, depth5 int
	for _, q := range stats.Queues {
		switch q.Priority {
		case 0:
			depth0 = q.Depth
		case 5:
			depth5 = q.Depth
		}
	}
	if depth5 != 1 || depth0 != 0 {
		t.Fatalf("depths = {0:%d 5:%d}, want {0:0 5:1} after reschedule", depth0, depth5)
	}
}

func TestScheduler_ModeLogDropsExceptionAndKeepsDriving(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) { panic("boom") })
	s.Start(&f, 0, "raiser")

	s.Update(0)
	if !s.Empty() {
		t.Fatal("scheduler not Empty() after an exception was logged and dropped")
	}
	stats := s.Stats()
	if stats.Exceptions != 1 {
		t.Fatalf("Exceptions = %d, want 1", stats.Exceptions)
	}
}

func TestScheduler_ModeRethrowPropagatesOutOfUpdate(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{}, ModeRethrow, quietConfig())
	f := NewFibre(func(ctl *Control) { panic("boom") })
	s.Start(&f, 0, "raiser")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Update() did not propagate the fibre's exception")
		}
		if r != "boom" {
			t.Fatalf("recovered value = %v, want \"boom\"", r)
		}
	}()
	s.Update(0)
	t.Fatal("unreachable: Update() should have panicked")
}

func TestScheduler_MoveAcceptsFibreAndPlacesOnNextUpdate(t *testing.T) {
	s := NewScheduler("dest", SchedulerParams{}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) { ctl.Yield() })

	if !s.Move(&f, nil) {
		t.Fatal("Move() onto a fresh scheduler returned false")
	}
	if f.Valid() {
		t.Fatal("f still Valid() after a successful Move")
	}
	if !s.Empty() {
		t.Fatal("scheduler reports non-Empty before its move queue is pumped")
	}

	s.Update(0)
	if s.Empty() {
		t.Fatal("scheduler still Empty() after Update pumped the move queue")
	}
}

func TestScheduler_MoveAppliesPriorityOverride(t *testing.T) {
	s := NewScheduler("dest", SchedulerParams{PriorityLevels: []int32{0, 9}}, ModeLog, quietConfig())
	f := NewFibre(func(ctl *Control) { ctl.Yield() })
	p := int32(9)

	if !s.Move(&f, &p) {
		t.Fatal("Move() returned false")
	}
	s.Update(0)

	stats := s.Stats()
	var depth9 int
	for _, q := range stats.Queues {
		if q.Priority == 9 {
			depth9 = q.Depth
		}
	}
	if depth9 != 1 {
		t.Fatalf("priority-9 queue depth = %d, want 1 (Move's priority override applied)", depth9)
	}
}

func TestScheduler_CancelAllClearsEveryQueue(t *testing.T) {
	s := NewScheduler("sched", SchedulerParams{PriorityLevels: []int32{0, 5}}, ModeLog, quietConfig())
	a := NewFibre(func(ctl *Control) { ctl.Yield() })
	b := NewFibre(func(ctl *Control) { ctl.Yield() })
	s.Start(&a, 0, "a")
	s.Start(&b, 5, "b")

	s.CancelAll()
	if !s.Empty() {
		t.Fatal("scheduler not Empty() after CancelAll()")
	}
}
