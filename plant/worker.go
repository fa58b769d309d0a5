package plant

import (
	"math/rand"
	"time"

	"cellcore/inventory"
)

// Emitter receives worker side effects: produced units, state transitions,
// maintenance windows. The engine bridges this onto its event bus.
type Emitter interface {
	EmitUnitProduced(conveyorID, orderID string, totalProduced int)
	EmitStatusChanged(conveyorID string, from, to Status)
	EmitMaintenanceDone(conveyorID string, efficiency float64)
}

// WorkerConfig carries the simulation knobs for one line.
type WorkerConfig struct {
	RefillAmount    int
	TimeScale       float64 // divides the real production duration
	MaintenanceOdds float64
	MaintenanceHold time.Duration
	IdlePoll        time.Duration
}

// Worker drives one conveyor through its production state machine. One
// long-lived goroutine per line; stops within one poll interval of Stop.
type Worker struct {
	conveyor *Conveyor
	alloc    *inventory.Allocator
	emitter  Emitter
	cfg      WorkerConfig
	rng      *rand.Rand
	stopChan chan struct{}
}

func NewWorker(c *Conveyor, alloc *inventory.Allocator, emitter Emitter, cfg WorkerConfig) *Worker {
	if cfg.RefillAmount <= 0 {
		cfg.RefillAmount = 5
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = time.Second
	}
	return &Worker{
		conveyor: c,
		alloc:    alloc,
		emitter:  emitter,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		stopChan: make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go w.run()
}

func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) run() {
	for {
		select {
		case <-w.stopChan:
			return
		default:
		}

		switch w.conveyor.Status() {
		case StatusEmergencyStopped:
			if !w.sleep(w.cfg.IdlePoll) {
				return
			}
		case StatusMaintenanceRequired:
			if !w.sleep(w.cfg.MaintenanceHold) {
				return
			}
			w.finishMaintenance()
		default:
			if !w.conveyor.Enabled() {
				if !w.sleep(w.cfg.IdlePoll) {
					return
				}
				continue
			}
			if !w.cycle() {
				return
			}
		}
	}
}

// cycle runs one production attempt. Returns false when stopping.
func (w *Worker) cycle() bool {
	missing, ok := w.conveyor.consumeCycle()
	if !ok {
		w.transition(StatusWaitingMaterials)
		for _, m := range missing {
			w.alloc.Refill(w.conveyor, m, w.cfg.RefillAmount)
		}
		// Still short after the allocation attempt: stay in
		// waiting_materials and retry next cycle.
		return w.sleep(w.cfg.IdlePoll)
	}

	w.transition(StatusProcessing)
	if !w.sleep(w.productionDuration()) {
		return false
	}

	total := w.conveyor.recordUnit()
	w.emitter.EmitUnitProduced(w.conveyor.ID, w.conveyor.CurrentOrder(), total)

	if w.rng.Float64() < w.cfg.MaintenanceOdds {
		w.transition(StatusMaintenanceRequired)
		return true
	}
	w.transition(StatusIdle)
	return true
}

func (w *Worker) finishMaintenance() {
	eff := w.conveyor.adjustEfficiency(0.5 + w.rng.Float64())
	w.transition(StatusIdle)
	w.emitter.EmitMaintenanceDone(w.conveyor.ID, eff)
}

// productionDuration converts the line's units-per-hour rate into the
// simulated time for one unit, compressed by the configured time scale.
func (w *Worker) productionDuration() time.Duration {
	rate := w.conveyor.Rate()
	if rate <= 0 {
		return w.cfg.IdlePoll
	}
	secs := 3600.0 / rate / w.cfg.TimeScale
	return time.Duration(secs * float64(time.Second))
}

func (w *Worker) transition(to Status) {
	from, ok := w.conveyor.transition(to)
	if !ok {
		return
	}
	w.emitter.EmitStatusChanged(w.conveyor.ID, from, to)
}

// sleep waits d or until Stop; false means the worker should exit. No lock
// is held across this suspension.
func (w *Worker) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.stopChan:
		return false
	case <-timer.C:
		return true
	}
}
