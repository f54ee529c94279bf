package core

import "testing"

func idOf(f Fibre) Id { return f.Id() }

func TestFibreQueue_NewRoundsCapacityUpToPowerOfTwoMinimum(t *testing.T) {
	q := NewFibreQueue(5, 3)
	if len(q.buf) != minFibreQueueCapacity {
		t.Fatalf("capacity = %d, want %d (minimum)", len(q.buf), minFibreQueueCapacity)
	}
	if q.Priority() != 5 {
		t.Fatalf("Priority() = %d, want 5", q.Priority())
	}
}

func TestFibreQueue_PushPopPreservesFIFOOrder(t *testing.T) {
	q := NewFibreQueue(0, 16)
	a := NewFibre(func(ctl *Control) {})
	b := NewFibre(func(ctl *Control) {})
	c := NewFibre(func(ctl *Control) {})
	idA, idB, idC := a.Id(), b.Id(), c.Id()

	q.Push(&a, Back)
	q.Push(&b, Back)
	q.Push(&c, Back)
	if q.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", q.Size())
	}

	if got := idOf(q.Pop()); !got.Equal(idA) {
		t.Fatalf("first pop = %v, want %v", got, idA)
	}
	if got := idOf(q.Pop()); !got.Equal(idB) {
		t.Fatalf("second pop = %v, want %v", got, idB)
	}
	if got := idOf(q.Pop()); !got.Equal(idC) {
		t.Fatalf("third pop = %v, want %v", got, idC)
	}
	if !q.Empty() {
		t.Fatal("queue not Empty() after draining every push")
	}
}

func TestFibreQueue_PushFrontInsertsBeforeExisting(t *testing.T) {
	q := NewFibreQueue(0, 16)
	a := NewFibre(func(ctl *Control) {})
	b := NewFibre(func(ctl *Control) {})
	idA, idB := a.Id(), b.Id()

	q.Push(&a, Back)
	q.Push(&b, Front)

	if got := idOf(q.Pop()); !got.Equal(idB) {
		t.Fatalf("first pop = %v, want %v (pushed to front)", got, idB)
	}
	if got := idOf(q.Pop()); !got.Equal(idA) {
		t.Fatalf("second pop = %v, want %v", got, idA)
	}
}

func TestFibreQueue_PopOnEmptyReturnsInvalidSentinel(t *testing.T) {
	q := NewFibreQueue(0, 16)
	f := q.Pop()
	if f.Valid() {
		t.Fatal("Pop() on an empty queue returned a Valid fibre")
	}
}

func TestFibreQueue_GrowPreservesFIFOOrderAcrossDoubling(t *testing.T) {
	q := NewFibreQueue(0, 16)
	var ids []Id
	for i := 0; i < 20; i++ {
		f := NewFibre(func(ctl *Control) {})
		ids = append(ids, f.Id())
		q.Push(&f, Back)
	}
	if len(q.buf) < 32 {
		t.Fatalf("capacity = %d, want growth beyond 16 for 20 pushes", len(q.buf))
	}
	for i, want := range ids {
		got := idOf(q.Pop())
		if !got.Equal(want) {
			t.Fatalf("pop %d = %v, want %v", i, got, want)
		}
	}
}

func TestFibreQueue_CancelSwapsInPlaceholderWithoutShiftingSize(t *testing.T) {
	q := NewFibreQueue(0, 16)
	a := NewFibre(func(ctl *Control) {})
	b := NewFibre(func(ctl *Control) {})
	c := NewFibre(func(ctl *Control) {})
	idA, idB, idC := a.Id(), b.Id(), c.Id()

	q.Push(&a, Back)
	q.Push(&b, Back)
	q.Push(&c, Back)

	if !q.Cancel(idB) {
		t.Fatal("Cancel(idB) = false, want true")
	}
	if q.Size() != 3 {
		t.Fatalf("Size() after Cancel = %d, want 3 (placeholder keeps the slot)", q.Size())
	}
	if q.Contains(idB) {
		t.Fatal("Contains(idB) = true after Cancel")
	}

	first := q.Pop()
	if !idOf(first).Equal(idA) {
		t.Fatalf("first pop = %v, want %v", idOf(first), idA)
	}
	second := q.Pop()
	if second.Valid() {
		t.Fatal("cancelled slot's pop returned a Valid fibre")
	}
	third := q.Pop()
	if !idOf(third).Equal(idC) {
		t.Fatalf("third pop = %v, want %v", idOf(third), idC)
	}
}

func TestFibreQueue_CancelUnknownIdReturnsFalse(t *testing.T) {
	q := NewFibreQueue(0, 16)
	a := NewFibre(func(ctl *Control) {})
	q.Push(&a, Back)
	if q.Cancel(newId()) {
		t.Fatal("Cancel() of an unqueued Id returned true")
	}
}

func TestFibreQueue_ClearEmptiesQueue(t *testing.T) {
	q := NewFibreQueue(0, 16)
	for i := 0; i < 5; i++ {
		f := NewFibre(func(ctl *Control) {})
		q.Push(&f, Back)
	}
	q.Clear()
	if !q.Empty() {
		t.Fatal("queue not Empty() after Clear()")
	}
	if q.Pop().Valid() {
		t.Fatal("Pop() after Clear() returned a Valid fibre")
	}
}
