package plant

import (
	"sync"
	"testing"
	"time"

	"cellcore/config"
	"cellcore/inventory"
)

type testEmitter struct {
	mu          sync.Mutex
	produced    []int
	transitions []Status
	maintenance int
}

func (e *testEmitter) EmitUnitProduced(conveyorID, orderID string, totalProduced int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.produced = append(e.produced, totalProduced)
}

func (e *testEmitter) EmitStatusChanged(conveyorID string, from, to Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitions = append(e.transitions, to)
}

func (e *testEmitter) EmitMaintenanceDone(conveyorID string, efficiency float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maintenance++
}

func (e *testEmitter) producedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.produced)
}

func (e *testEmitter) sawTransition(s Status) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.transitions {
		if t == s {
			return true
		}
	}
	return false
}

type nullInvEmitter struct{}

func (nullInvEmitter) EmitTransfer(t inventory.Transfer)                             {}
func (nullInvEmitter) EmitLowStock(string, inventory.Material, int)                  {}
func (nullInvEmitter) EmitOutOfStock(inventory.Material, map[inventory.Material]int) {}

func testSeed(buffer map[string]int) config.ConveyorSeed {
	return config.ConveyorSeed{
		ID: "C1", Name: "Line 1", Warehouse: "WH_A",
		ProductType: "cell", Rate: 3600, BufferCap: 10,
		Buffer: buffer,
	}
}

func fastConfig() WorkerConfig {
	return WorkerConfig{
		RefillAmount: 5,
		TimeScale:    1000, // one unit per millisecond of wall time
		IdlePoll:     5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerProducesFromBuffer(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 3, "cathode": 3, "electrolyte": 3}))
	reg := inventory.NewRegistry()
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	em := &testEmitter{}

	w := NewWorker(c, alloc, em, fastConfig())
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool { return em.producedCount() >= 3 })
	if snap := c.Snapshot(); snap.Produced < 3 {
		t.Fatalf("conveyor produced %d, want >= 3", snap.Produced)
	}
}

func TestWorkerWaitsOnEmptyStock(t *testing.T) {
	c := NewConveyor(testSeed(nil))
	reg := inventory.NewRegistry()
	reg.Add(&inventory.Warehouse{ID: "WH_A", Priority: 1})
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	em := &testEmitter{}

	w := NewWorker(c, alloc, em, fastConfig())
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool { return c.Status() == StatusWaitingMaterials })
	if em.producedCount() != 0 {
		t.Fatalf("produced %d units with no materials", em.producedCount())
	}
}

func TestWorkerRefillsAndResumes(t *testing.T) {
	c := NewConveyor(testSeed(nil))
	reg := inventory.NewRegistryFromConfig([]config.WarehouseSeed{
		{ID: "WH_A", Priority: 1, Stock: map[string]int{"anode": 20, "cathode": 20, "electrolyte": 20}},
	})
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	em := &testEmitter{}

	w := NewWorker(c, alloc, em, fastConfig())
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool { return em.producedCount() >= 1 })
	if !em.sawTransition(StatusWaitingMaterials) {
		t.Fatal("expected a waiting_materials transition before the refill")
	}
}

func TestWorkerHoldsEmergencyStop(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 5, "cathode": 5, "electrolyte": 5}))
	reg := inventory.NewRegistry()
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	em := &testEmitter{}

	c.EmergencyStop()
	w := NewWorker(c, alloc, em, fastConfig())
	w.Start()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if c.Status() != StatusEmergencyStopped {
		t.Fatalf("status = %s, want emergency_stopped", c.Status())
	}
	if em.producedCount() != 0 {
		t.Fatalf("produced %d units while emergency stopped", em.producedCount())
	}

	c.Reset()
	waitFor(t, func() bool { return em.producedCount() >= 1 })
}

func TestWorkerMaintenanceCycle(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 10, "cathode": 10, "electrolyte": 10}))
	reg := inventory.NewRegistry()
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	em := &testEmitter{}

	cfg := fastConfig()
	cfg.MaintenanceOdds = 1.0 // every cycle triggers maintenance
	cfg.MaintenanceHold = time.Millisecond

	w := NewWorker(c, alloc, em, cfg)
	w.Start()
	defer w.Stop()

	waitFor(t, func() bool {
		em.mu.Lock()
		defer em.mu.Unlock()
		return em.maintenance >= 1
	})
	if !em.sawTransition(StatusMaintenanceRequired) {
		t.Fatal("expected a maintenance_required transition")
	}
}

func TestTelemetryDuringProduction(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 10, "cathode": 10, "electrolyte": 10}))
	reg := inventory.NewRegistry()
	alloc := inventory.NewAllocator(reg, nullInvEmitter{})
	w := NewWorker(c, alloc, &testEmitter{}, fastConfig())

	// Telemetry lands from the dispatcher goroutine while the worker paces
	// cycles on the rate. The race detector covers the interleaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c.ApplyTelemetry("speed", float64(100+i))
		}
	}()
	for i := 0; i < 500; i++ {
		if w.productionDuration() < 0 {
			t.Error("negative production duration")
		}
	}
	<-done

	if got := c.Rate(); got != 5990 {
		t.Fatalf("rate = %.0f after final speed sample, want 5990", got)
	}
}

func TestConsumeCycleAtomic(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 1, "cathode": 0, "electrolyte": 1}))

	missing, ok := c.consumeCycle()
	if ok {
		t.Fatal("expected shortfall")
	}
	if len(missing) != 1 || missing[0] != inventory.Cathode {
		t.Fatalf("missing = %v, want [cathode]", missing)
	}
	// Nothing consumed on shortfall
	snap := c.Snapshot()
	if snap.Buffer[inventory.Anode] != 1 || snap.Buffer[inventory.Electrolyte] != 1 {
		t.Fatalf("buffer mutated on failed cycle: %v", snap.Buffer)
	}
}

func TestTakeDeliveryHonorsCap(t *testing.T) {
	c := NewConveyor(testSeed(map[string]int{"anode": 8}))

	accepted := c.TakeDelivery(inventory.Anode, 5)
	if accepted != 2 {
		t.Fatalf("accepted %d over an 8/10 buffer, want 2", accepted)
	}
	if c.TakeDelivery(inventory.Anode, 1) != 0 {
		t.Fatal("accepted delivery into a full buffer")
	}
}
