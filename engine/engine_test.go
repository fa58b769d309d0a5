package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cellcore/config"
	"cellcore/feed"
	"cellcore/inventory"
	"cellcore/messaging"
	"cellcore/plant"
	"cellcore/store"
)

// stubFeed satisfies feed.Adapter without a broker.
type stubFeed struct {
	mu        sync.Mutex
	connected bool
	subs      int
}

func (f *stubFeed) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *stubFeed) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *stubFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *stubFeed) Subscribe(func(feed.Reading), func(string, []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs++
	return nil
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Plant.TimeScale = 100000 // cycles finish immediately under test
	cfg.Plant.MaintenanceOdds = 0

	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	msg, err := messaging.NewClient(&cfg.Messaging)
	if err != nil {
		t.Fatalf("messaging: %v", err)
	}

	eng := New(Config{
		AppConfig: cfg,
		DB:        db,
		Feed:      &stubFeed{connected: true},
		MsgClient: msg,
	})
	eng.Start()
	t.Cleanup(eng.Stop)
	// Park the workers so assertions on line and order state are stable.
	for _, line := range eng.Lines().List() {
		line.Stop()
	}
	return eng
}

func TestExecuteLineCommands(t *testing.T) {
	e := testEngine(t)

	if _, err := e.Execute(Command{Command: "stop", ConveyorID: "C1"}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	line, _ := e.Lines().Get("C1")
	if line.Enabled() {
		t.Fatal("C1 still enabled after stop")
	}

	if _, err := e.Execute(Command{Command: "start", ConveyorID: "C1"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !line.Enabled() {
		t.Fatal("C1 not enabled after start")
	}

	if _, err := e.Execute(Command{Command: "emergency_stop", ConveyorID: "C1"}); err != nil {
		t.Fatalf("emergency_stop: %v", err)
	}
	if line.Status() != plant.StatusEmergencyStopped {
		t.Fatalf("status = %s", line.Status())
	}

	if _, err := e.Execute(Command{Command: "reset", ConveyorID: "C1"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if line.Status() == plant.StatusEmergencyStopped {
		t.Fatal("reset did not clear emergency stop")
	}

	if _, err := e.Execute(Command{Command: "start", ConveyorID: "C9"}); err == nil {
		t.Fatal("expected error for unknown conveyor")
	}
	if _, err := e.Execute(Command{Command: "warp"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestExecutePlantWideEmergencyStop(t *testing.T) {
	e := testEngine(t)

	if _, err := e.Execute(Command{Command: "emergency_stop"}); err != nil {
		t.Fatalf("emergency_stop: %v", err)
	}
	for _, line := range e.Lines().List() {
		if line.Status() != plant.StatusEmergencyStopped {
			t.Fatalf("%s status = %s", line.ID, line.Status())
		}
	}
}

func TestExecuteInventoryCommands(t *testing.T) {
	e := testEngine(t)

	result, err := e.Execute(Command{Command: "restock_warehouse", WarehouseID: "WH_C", Material: "anode", Quantity: 30})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !strings.Contains(result, "40") {
		t.Fatalf("restock result %q, want new quantity 40", result)
	}

	w, _ := e.Warehouses().Get("WH_C")
	if w.Quantity(inventory.Anode) != 40 {
		t.Fatalf("WH_C anode = %d", w.Quantity(inventory.Anode))
	}

	if _, err := e.Execute(Command{Command: "restock_warehouse", WarehouseID: "WH_X", Material: "anode", Quantity: 5}); err == nil {
		t.Fatal("expected error for unknown warehouse")
	}

	if _, err := e.Execute(Command{Command: "assign_warehouse", ConveyorID: "C1", WarehouseID: "WH_B"}); err != nil {
		t.Fatalf("assign_warehouse: %v", err)
	}
	line, _ := e.Lines().Get("C1")
	if line.PreferredWarehouse() != "WH_B" {
		t.Fatalf("preferred = %s", line.PreferredWarehouse())
	}
}

func TestExecuteOrderCommands(t *testing.T) {
	e := testEngine(t)

	id, err := e.Execute(Command{Command: "create_order", ProductType: "Li-Ion_18650", Quantity: 5, Priority: 2})
	if err != nil {
		t.Fatalf("create_order: %v", err)
	}
	if _, ok := e.Scheduler().Get(id); !ok {
		t.Fatalf("order %s not in scheduler", id)
	}

	if _, err := e.Execute(Command{Command: "assign_order", OrderID: id, ConveyorID: "C2"}); err != nil {
		t.Fatalf("assign_order: %v", err)
	}
	o, _ := e.Scheduler().Get(id)
	if o.Conveyor != "C2" {
		t.Fatalf("order on %q", o.Conveyor)
	}

	if _, err := e.Execute(Command{Command: "cancel_order", OrderID: id, Reason: "test"}); err != nil {
		t.Fatalf("cancel_order: %v", err)
	}
}

func TestSystemAlarmHaltsLines(t *testing.T) {
	e := testEngine(t)

	e.HandleSystemAlarm("emergency_stop", true)
	for _, line := range e.Lines().List() {
		if line.Status() != plant.StatusEmergencyStopped {
			t.Fatalf("%s not halted", line.ID)
		}
	}

	alarms, err := e.DB().ListAlarms(true, 10)
	if err != nil {
		t.Fatalf("list alarms: %v", err)
	}
	found := false
	for _, a := range alarms {
		if a.Source == "system:emergency_stop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no persisted alarm, got %+v", alarms)
	}

	e.HandleSystemAlarm("emergency_stop", false)
	alarms, _ = e.DB().ListAlarms(true, 10)
	for _, a := range alarms {
		if a.Source == "system:emergency_stop" {
			t.Fatal("alarm not cleared")
		}
	}
}

func TestFailedAlarmWriteIsLogged(t *testing.T) {
	cfg := config.Default()
	cfg.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Plant.TimeScale = 100000
	cfg.Plant.MaintenanceOdds = 0

	db, err := store.Open(&cfg.Database)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	msg, err := messaging.NewClient(&cfg.Messaging)
	if err != nil {
		t.Fatalf("messaging: %v", err)
	}

	var mu sync.Mutex
	var logged []string
	eng := New(Config{
		AppConfig: cfg,
		DB:        db,
		Feed:      &stubFeed{connected: true},
		MsgClient: msg,
		LogFunc: func(format string, args ...any) {
			mu.Lock()
			defer mu.Unlock()
			logged = append(logged, fmt.Sprintf(format, args...))
		},
	})
	eng.Start()
	t.Cleanup(eng.Stop)
	for _, line := range eng.Lines().List() {
		line.Stop()
	}

	// With the store gone the alarm insert fails; the failure must still
	// leave a log line rather than vanish.
	db.Close()
	eng.Events.Emit(Event{Type: EventOutOfStock, Payload: OutOfStockEvent{Material: inventory.Anode}})

	mu.Lock()
	defer mu.Unlock()
	for _, l := range logged {
		if strings.Contains(l, "log alarm") {
			return
		}
	}
	t.Fatalf("failed alarm write left no log line, got %q", logged)
}

func TestInventoryLevelFeedsRegistry(t *testing.T) {
	e := testEngine(t)

	e.HandleInventoryLevel("WH_B", "cathode", 3)
	w, _ := e.Warehouses().Get("WH_B")
	if w.Quantity(inventory.Cathode) != 3 {
		t.Fatalf("WH_B cathode = %d", w.Quantity(inventory.Cathode))
	}
}

func TestProductionCountCreditsOrder(t *testing.T) {
	e := testEngine(t)

	id, _ := e.Scheduler().CreateOrder("cell", 10, 1)
	if err := e.Scheduler().AssignOrder(id, "C3"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	e.HandleProductionCount("C3", 6)
	o, _ := e.Scheduler().Get(id)
	if o.Produced != 6 {
		t.Fatalf("produced = %d, want 6", o.Produced)
	}

	// stale counts never roll production back
	e.HandleProductionCount("C3", 2)
	o, _ = e.Scheduler().Get(id)
	if o.Produced != 6 {
		t.Fatalf("produced = %d after stale count", o.Produced)
	}
}
