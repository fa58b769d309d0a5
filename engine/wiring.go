package engine

import (
	"fmt"

	"cellcore/inventory"
)

// logAlarm and clearAlarms wrap the store calls so a failed alarm write is
// itself logged. A degraded state must leave a trace somewhere.
func (e *Engine) logAlarm(severity, source, message string) {
	if err := e.db.LogAlarm(severity, source, message); err != nil {
		e.logFn("engine: log alarm %s/%s: %v", severity, source, err)
	}
}

func (e *Engine) clearAlarms(source string) {
	if err := e.db.ClearAlarms(source); err != nil {
		e.logFn("engine: clear alarms %s: %v", source, err)
	}
}

func (e *Engine) wireEventHandlers() {
	// Transfers: persist the audit row, refresh mirrored state, publish
	e.Events.SubscribeTypes(func(evt Event) {
		t := evt.Payload.(inventory.Transfer)
		if err := e.db.StoreTransfer(t); err != nil {
			e.logFn("engine: store transfer %s: %v", t.ID, err)
		}
		e.state.RefreshWarehouse(t.Warehouse)
		if t.Direction == "transfer" {
			e.state.RefreshConveyor(t.Dest)
		}
		e.msgClient.Publish(e.msgClient.Topic("status", "transfers"), t)
	}, EventTransferCompleted)

	// Low stock: warn once per sweep
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(LowStockEvent)
		e.logFn("engine: low stock %s %s (%d left)", ev.Warehouse, ev.Material, ev.Remaining)
		e.logAlarm("warning", "inventory:"+ev.Warehouse,
			fmt.Sprintf("%s low in %s: %d remaining", ev.Material, ev.Warehouse, ev.Remaining))
	}, EventLowStock)

	// Out of stock: the cell cannot produce, escalate
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OutOfStockEvent)
		e.logFn("engine: %s exhausted across all warehouses", ev.Material)
		e.logAlarm("critical", "inventory", fmt.Sprintf("%s exhausted across all warehouses", ev.Material))
		e.msgClient.Publish(e.msgClient.Topic("status", "alerts"), ev)
	}, EventOutOfStock)

	// Produced units: credit the order, sample the metric, publish
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(UnitProducedEvent)
		e.scheduler.RecordProduction(ev.Conveyor)
		if line, ok := e.lines.Get(ev.Conveyor); ok {
			snap := line.Snapshot()
			if err := e.db.StoreProductionMetric(ev.Conveyor, ev.OrderID, ev.Total, snap.Efficiency); err != nil {
				e.logFn("engine: store production metric: %v", err)
			}
		}
		e.state.RefreshConveyor(ev.Conveyor)
		e.msgClient.Publish(e.msgClient.Topic("status", "production"), ev)
	}, EventUnitProduced)

	// Line state transitions
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StatusChangedEvent)
		e.logFn("engine: %s %s -> %s", ev.Conveyor, ev.From, ev.To)
		e.state.RefreshConveyor(ev.Conveyor)
		e.msgClient.Publish(e.msgClient.Topic("status", "conveyors"), ev)
	}, EventStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MaintenanceDoneEvent)
		e.logFn("engine: %s maintenance done, efficiency %.1f", ev.Conveyor, ev.Efficiency)
		e.state.RefreshConveyor(ev.Conveyor)
	}, EventMaintenanceDone)

	// Order lifecycle: the store row tracks every change
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderEvent)
		if err := e.db.StoreOrder(ev.Order); err != nil {
			e.logFn("engine: store order %s: %v", ev.Order.ID, err)
		}
		switch evt.Type {
		case EventOrderCreated:
			e.logFn("engine: order %s created (%s x%d, priority %d)",
				ev.Order.ID, ev.Order.ProductType, ev.Order.Quantity, ev.Order.Priority)
		case EventOrderAssigned:
			e.logFn("engine: order %s assigned to %s", ev.Order.ID, ev.Order.Conveyor)
			e.state.RefreshConveyor(ev.Order.Conveyor)
		case EventOrderCompleted:
			e.logFn("engine: order %s completed (%d units)", ev.Order.ID, ev.Order.Produced)
			e.state.RefreshConveyor(ev.Order.Conveyor)
		case EventOrderCancelled:
			e.logFn("engine: order %s cancelled: %s", ev.Order.ID, ev.Reason)
		}
		e.msgClient.Publish(e.msgClient.Topic("status", "orders"), ev.Order)
	}, EventOrderCreated, EventOrderAssigned, EventOrderCompleted, EventOrderCancelled)

	// Quality floor breaches
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(QualityAlertEvent)
		e.logFn("engine: pass rate %.1f below threshold %.1f", ev.PassRate, ev.Threshold)
		e.logAlarm("warning", "quality", fmt.Sprintf("pass rate %.1f below threshold %.1f", ev.PassRate, ev.Threshold))
		e.msgClient.Publish(e.msgClient.Topic("status", "alerts"), ev)
	}, EventQualityAlert)

	// Plant-level signals
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SystemAlarmEvent)
		source := "system:" + ev.Signal
		if ev.Active {
			e.logFn("engine: system alarm %s raised", ev.Signal)
			e.logAlarm("critical", source, ev.Signal+" raised by plant")
		} else {
			e.logFn("engine: system alarm %s cleared", ev.Signal)
			e.clearAlarms(source)
		}
		e.msgClient.Publish(e.msgClient.Topic("status", "alerts"), ev)
	}, EventSystemAlarm)

	// Connectivity
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		switch evt.Type {
		case EventFeedConnected:
			e.logFn("engine: %s", ev.Detail)
			e.clearAlarms("feed")
			e.state.SyncAll()
		case EventFeedDisconnected:
			e.logFn("engine: %s", ev.Detail)
			e.logAlarm("critical", "feed", ev.Detail)
		case EventMessagingConnected:
			e.logFn("engine: %s", ev.Detail)
			e.clearAlarms("messaging")
		case EventMessagingDisconnected:
			e.logFn("engine: %s", ev.Detail)
			e.logAlarm("warning", "messaging", ev.Detail)
		}
	}, EventFeedConnected, EventFeedDisconnected, EventMessagingConnected, EventMessagingDisconnected)
}
