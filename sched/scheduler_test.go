package sched

import (
	"errors"
	"sync"
	"testing"
	"time"

	"cellcore/config"
	"cellcore/plant"
)

type testEmitter struct {
	mu        sync.Mutex
	created   int
	assigned  []string
	completed []string
	cancelled []string
}

func (e *testEmitter) EmitOrderCreated(o Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created++
}

func (e *testEmitter) EmitOrderAssigned(o Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assigned = append(e.assigned, o.ID)
}

func (e *testEmitter) EmitOrderCompleted(o Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, o.ID)
}

func (e *testEmitter) EmitOrderCancelled(o Order, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelled = append(e.cancelled, o.ID)
}

func testLines(ids ...string) *plant.Registry {
	var seeds []config.ConveyorSeed
	for _, id := range ids {
		seeds = append(seeds, config.ConveyorSeed{ID: id, Name: id, Rate: 100, BufferCap: 10})
	}
	return plant.NewRegistryFromConfig(seeds)
}

func TestCreateOrderValidation(t *testing.T) {
	s := New(testLines("C1"), &testEmitter{})
	if _, err := s.CreateOrder("cell", 0, 1); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	id, err := s.CreateOrder("cell", 10, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	o, ok := s.Get(id)
	if !ok || o.Status != StatusPending || o.Quantity != 10 {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestAssignOrderFailsClean(t *testing.T) {
	lines := testLines("C1")
	em := &testEmitter{}
	s := New(lines, em)

	if err := s.AssignOrder("PO-missing", "C1"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}

	id, _ := s.CreateOrder("cell", 5, 1)
	if err := s.AssignOrder(id, "C9"); !errors.Is(err, ErrConveyorNotFound) {
		t.Fatalf("err = %v, want ErrConveyorNotFound", err)
	}
	if o, _ := s.Get(id); o.Status != StatusPending {
		t.Fatalf("failed assign mutated order: %+v", o)
	}

	if err := s.AssignOrder(id, "C1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	other, _ := s.CreateOrder("cell", 5, 1)
	if err := s.AssignOrder(other, "C1"); !errors.Is(err, ErrConveyorBusy) {
		t.Fatalf("err = %v, want ErrConveyorBusy", err)
	}
	if err := s.AssignOrder(id, "C1"); !errors.Is(err, ErrOrderNotPending) {
		t.Fatalf("err = %v, want ErrOrderNotPending", err)
	}
}

func TestAutoAssignPriorityOrder(t *testing.T) {
	lines := testLines("C1", "C2")
	em := &testEmitter{}
	s := New(lines, em)

	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	low, _ := s.CreateOrder("cell", 5, 5)
	_, _ = s.CreateOrder("cell", 5, 1)
	high, _ := s.CreateOrder("cell", 5, 9)

	if n := s.AutoAssign(); n != 2 {
		t.Fatalf("assigned %d, want 2", n)
	}
	ho, _ := s.Get(high)
	lo, _ := s.Get(low)
	if ho.Conveyor != "C1" {
		t.Fatalf("highest priority got %q, want C1", ho.Conveyor)
	}
	if lo.Conveyor != "C2" {
		t.Fatalf("second priority got %q, want C2", lo.Conveyor)
	}
}

func TestAutoAssignCreationTieBreak(t *testing.T) {
	lines := testLines("C1")
	s := New(lines, &testEmitter{})

	base := time.Now()
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, _ := s.CreateOrder("cell", 5, 3)
	_, _ = s.CreateOrder("cell", 5, 3)

	s.AutoAssign()
	o, _ := s.Get(first)
	if o.Status != StatusInProgress {
		t.Fatalf("older order of equal priority not chosen: %+v", o)
	}
}

func TestAutoAssignSkipsBusyAndDisabled(t *testing.T) {
	lines := testLines("C1", "C2")
	s := New(lines, &testEmitter{})

	c2, _ := lines.Get("C2")
	c2.Stop()

	id, _ := s.CreateOrder("cell", 5, 1)
	if n := s.AutoAssign(); n != 1 {
		t.Fatalf("assigned %d, want 1", n)
	}
	o, _ := s.Get(id)
	if o.Conveyor != "C1" {
		t.Fatalf("order on %q, want C1", o.Conveyor)
	}

	if n := s.AutoAssign(); n != 0 {
		t.Fatalf("assigned %d with no free lines, want 0", n)
	}
}

func TestCompletionFlow(t *testing.T) {
	lines := testLines("C1")
	em := &testEmitter{}
	s := New(lines, em)

	id, _ := s.CreateOrder("cell", 3, 1)
	if err := s.AssignOrder(id, "C1"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	for i := 0; i < 5; i++ {
		s.RecordProduction("C1")
	}
	o, _ := s.Get(id)
	if o.Produced != 3 {
		t.Fatalf("produced %d, want capped at 3", o.Produced)
	}

	done := s.CheckCompletion()
	if len(done) != 1 || done[0].ID != id {
		t.Fatalf("completed %v, want [%s]", done, id)
	}
	line, _ := lines.Get("C1")
	if line.CurrentOrder() != "" {
		t.Fatal("conveyor not released after completion")
	}
	if done = s.CheckCompletion(); len(done) != 0 {
		t.Fatalf("second sweep completed %v again", done)
	}
}

func TestSetProductionMonotonic(t *testing.T) {
	lines := testLines("C1")
	s := New(lines, &testEmitter{})

	id, _ := s.CreateOrder("cell", 10, 1)
	s.AssignOrder(id, "C1")

	s.SetProduction("C1", 4)
	s.SetProduction("C1", 2) // stale count, ignored
	o, _ := s.Get(id)
	if o.Produced != 4 {
		t.Fatalf("produced %d, want 4", o.Produced)
	}

	s.SetProduction("C1", 99)
	o, _ = s.Get(id)
	if o.Produced != 10 {
		t.Fatalf("produced %d, want capped at 10", o.Produced)
	}
}

func TestCancelReleasesConveyor(t *testing.T) {
	lines := testLines("C1")
	em := &testEmitter{}
	s := New(lines, em)

	id, _ := s.CreateOrder("cell", 5, 1)
	s.AssignOrder(id, "C1")

	if err := s.Cancel(id, "operator"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	line, _ := lines.Get("C1")
	if line.CurrentOrder() != "" {
		t.Fatal("conveyor not released after cancel")
	}
	if err := s.Cancel(id, "again"); err != nil {
		t.Fatalf("re-cancel should be a no-op, got %v", err)
	}
	if len(em.cancelled) != 1 {
		t.Fatalf("cancelled emitted %d times, want 1", len(em.cancelled))
	}
}

func TestHoldResume(t *testing.T) {
	lines := testLines("C1")
	s := New(lines, &testEmitter{})

	id, _ := s.CreateOrder("cell", 5, 1)
	if err := s.Hold(id); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if n := s.AutoAssign(); n != 0 {
		t.Fatalf("held order was assigned")
	}
	if err := s.Resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if n := s.AutoAssign(); n != 1 {
		t.Fatalf("resumed order not assigned")
	}
}
