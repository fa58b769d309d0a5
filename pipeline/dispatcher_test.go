package pipeline

import (
	"sync"
	"testing"
	"time"

	"cellcore/feed"
)

type captureHandler struct {
	mu     sync.Mutex
	counts map[string]int
	last   map[string]any
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{counts: make(map[string]int), last: make(map[string]any)}
}

func (h *captureHandler) HandleTelemetry(conveyorID, metric string, value float64, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts["telemetry"]++
	h.last["telemetry"] = conveyorID + "/" + metric
}

func (h *captureHandler) HandleProductionCount(conveyorID string, count int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts["production"]++
	h.last["production"] = count
}

func (h *captureHandler) HandleQualityResult(metric string, value float64, passed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts["quality"]++
}

func (h *captureHandler) HandleInventoryLevel(warehouseID, material string, level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts["inventory"]++
}

func (h *captureHandler) HandleSystemAlarm(signal string, active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts["alarm"]++
}

func (h *captureHandler) count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[key]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcherRoutesEvents(t *testing.T) {
	h := newCaptureHandler()
	d := NewDispatcher(16, 10*time.Millisecond, h, nil)
	d.Start()
	defer d.Stop()

	d.Push(feed.Reading{SourceID: "Conveyor.C1.Speed", Value: 10.0})
	d.Push(feed.Reading{SourceID: "Production.C1.Count", Value: float64(7)})
	d.Push(feed.Reading{SourceID: "System.Fault", Value: true})

	waitFor(t, func() bool { return d.Stats().Handled == 3 })
	if h.count("telemetry") != 1 || h.count("production") != 1 || h.count("alarm") != 1 {
		t.Fatalf("unexpected routing: %+v", h.counts)
	}
}

func TestDispatcherSurvivesMalformed(t *testing.T) {
	h := newCaptureHandler()
	d := NewDispatcher(16, 10*time.Millisecond, h, nil)
	d.Start()
	defer d.Stop()

	d.Push(feed.Reading{SourceID: "Warehouse.A.Anode", Value: float64(12)})
	d.Push(feed.Reading{SourceID: "Bogus.Node", Value: "???"})
	d.Push(feed.Reading{SourceID: "Warehouse.C.Electrolyte", Value: float64(8)})

	waitFor(t, func() bool {
		st := d.Stats()
		return st.Handled == 2 && st.Malformed == 1
	})
	if h.count("inventory") != 2 {
		t.Fatalf("valid readings around a malformed one were not all handled: %+v", h.counts)
	}
}

func TestDispatcherDropsOnOverflow(t *testing.T) {
	h := newCaptureHandler()
	d := NewDispatcher(2, 10*time.Millisecond, h, nil)
	// not started: the queue cannot drain

	for i := 0; i < 10; i++ {
		d.Push(feed.Reading{SourceID: "Conveyor.C1.Load", Value: 50.0})
	}
	st := d.Stats()
	if st.Dropped != 8 || st.Queued != 2 {
		t.Fatalf("expected 8 dropped with 2 queued, got %+v", st)
	}
}
