package pipeline

import (
	"log"
	"sync/atomic"
	"time"

	"cellcore/feed"
)

// Handler receives classified events. The engine implements this and fans
// each kind out to the plant, the scheduler and the inventory registry.
type Handler interface {
	HandleTelemetry(conveyorID, metric string, value float64, active bool)
	HandleProductionCount(conveyorID string, count int)
	HandleQualityResult(metric string, value float64, passed bool)
	HandleInventoryLevel(warehouseID, material string, level int)
	HandleSystemAlarm(signal string, active bool)
}

// Recorder persists every raw reading before classification so the audit
// trail keeps malformed traffic too.
type Recorder interface {
	StoreReading(r feed.Reading) error
}

// Stats is a point-in-time view of the queue counters.
type Stats struct {
	Received  uint64 `json:"received"`
	Handled   uint64 `json:"handled"`
	Dropped   uint64 `json:"dropped"`
	Malformed uint64 `json:"malformed"`
	Queued    int    `json:"queued"`
}

// Dispatcher owns the bounded ingest queue and the single drain goroutine.
// Push never blocks: when the queue is full the reading is dropped and
// counted, protecting the feed callback from a slow consumer.
type Dispatcher struct {
	queue    chan feed.Reading
	handler  Handler
	recorder Recorder
	poll     time.Duration
	stopChan chan struct{}

	received  atomic.Uint64
	handled   atomic.Uint64
	dropped   atomic.Uint64
	malformed atomic.Uint64
}

func NewDispatcher(queueSize int, poll time.Duration, handler Handler, recorder Recorder) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 4096
	}
	if poll <= 0 {
		poll = time.Second
	}
	return &Dispatcher{
		queue:    make(chan feed.Reading, queueSize),
		handler:  handler,
		recorder: recorder,
		poll:     poll,
		stopChan: make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) Stop() {
	close(d.stopChan)
}

// Push enqueues one reading. Drops on overflow rather than backpressuring
// the broker callback.
func (d *Dispatcher) Push(r feed.Reading) {
	d.received.Add(1)
	select {
	case d.queue <- r:
	default:
		if d.dropped.Add(1)%1000 == 1 {
			log.Printf("pipeline: queue full, dropping readings (total dropped %d)", d.dropped.Load())
		}
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Received:  d.received.Load(),
		Handled:   d.handled.Load(),
		Dropped:   d.dropped.Load(),
		Malformed: d.malformed.Load(),
		Queued:    len(d.queue),
	}
}

func (d *Dispatcher) run() {
	timer := time.NewTimer(d.poll)
	defer timer.Stop()
	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(d.poll)

		select {
		case <-d.stopChan:
			return
		case r := <-d.queue:
			d.process(r)
		case <-timer.C:
			// idle tick, loop to observe stopChan
		}
	}
}

// process handles one reading end to end. A bad reading is logged and
// skipped; the drain loop never dies on malformed input.
func (d *Dispatcher) process(r feed.Reading) {
	if d.recorder != nil {
		if err := d.recorder.StoreReading(r); err != nil {
			log.Printf("pipeline: store reading %s: %v", r.SourceID, err)
		}
	}

	ev, err := Classify(r)
	if err != nil {
		d.malformed.Add(1)
		log.Printf("pipeline: %v", err)
		return
	}

	switch ev.Kind {
	case KindTelemetry:
		d.handler.HandleTelemetry(ev.Conveyor, ev.Metric, ev.Value, ev.Active)
	case KindProductionCount:
		d.handler.HandleProductionCount(ev.Conveyor, int(ev.Value))
	case KindQualityResult:
		d.handler.HandleQualityResult(ev.Metric, ev.Value, ev.Active)
	case KindInventoryLevel:
		d.handler.HandleInventoryLevel(ev.Warehouse, ev.Material, int(ev.Value))
	case KindSystemAlarm:
		d.handler.HandleSystemAlarm(ev.Metric, ev.Active)
	}
	d.handled.Add(1)
}
