package engine

import (
	"cellcore/inventory"
)

// The engine is the pipeline's handler: classified feed events land here and
// fan out to the registries, the scheduler and the event bus.

func (e *Engine) HandleTelemetry(conveyorID, metric string, value float64, active bool) {
	line, ok := e.lines.Get(conveyorID)
	if !ok {
		e.logFn("engine: telemetry for unknown conveyor %s", conveyorID)
		return
	}
	switch metric {
	case "speed", "load":
		line.ApplyTelemetry(metric, value)
		e.state.RefreshConveyor(conveyorID)
	case "running":
		// informational; line state is driven by the worker and commands
	}
}

func (e *Engine) HandleProductionCount(conveyorID string, count int) {
	line, ok := e.lines.Get(conveyorID)
	if !ok {
		e.logFn("engine: production count for unknown conveyor %s", conveyorID)
		return
	}
	if !line.SetProduced(count) {
		return
	}
	e.scheduler.SetProduction(conveyorID, count)
	snap := line.Snapshot()
	if err := e.db.StoreProductionMetric(conveyorID, snap.CurrentOrder, count, snap.Efficiency); err != nil {
		e.logFn("engine: store production metric: %v", err)
	}
	e.state.RefreshConveyor(conveyorID)
}

func (e *Engine) HandleQualityResult(metric string, value float64, passed bool) {
	if metric == "last_test_result" {
		value = 0
		if passed {
			value = 1
		}
	}
	if err := e.db.StoreQuality(metric, value, passed); err != nil {
		e.logFn("engine: store quality: %v", err)
	}
	if metric == "pass_rate" && value < e.cfg.Monitor.QualityThreshold {
		e.Events.Emit(Event{Type: EventQualityAlert, Payload: QualityAlertEvent{
			PassRate:  value,
			Threshold: e.cfg.Monitor.QualityThreshold,
		}})
	}
}

func (e *Engine) HandleInventoryLevel(warehouseID, material string, level int) {
	if err := e.warehouses.SetLevel(warehouseID, inventory.Material(material), level); err != nil {
		e.logFn("engine: inventory level: %v", err)
		return
	}
	if level <= e.cfg.Monitor.LowStockThreshold {
		e.Events.Emit(Event{Type: EventLowStock, Payload: LowStockEvent{
			Warehouse: warehouseID,
			Material:  inventory.Material(material),
			Remaining: level,
		}})
	}
	e.state.RefreshWarehouse(warehouseID)
}

func (e *Engine) HandleSystemAlarm(signal string, active bool) {
	e.Events.Emit(Event{Type: EventSystemAlarm, Payload: SystemAlarmEvent{Signal: signal, Active: active}})
	if signal == "emergency_stop" && active {
		for _, line := range e.lines.List() {
			line.EmergencyStop()
			e.state.RefreshConveyor(line.ID)
		}
		e.logFn("engine: plant emergency stop, all lines halted")
	}
}
