package engine

import (
	"cellcore/inventory"
	"cellcore/plant"
	"cellcore/sched"
)

// inventoryEmitter bridges the allocator's emitter interface to the EventBus.
type inventoryEmitter struct {
	bus *EventBus
}

func (e *inventoryEmitter) EmitTransfer(t inventory.Transfer) {
	e.bus.Emit(Event{Type: EventTransferCompleted, Payload: t})
}

func (e *inventoryEmitter) EmitLowStock(warehouseID string, m inventory.Material, remaining int) {
	e.bus.Emit(Event{Type: EventLowStock, Payload: LowStockEvent{
		Warehouse: warehouseID,
		Material:  m,
		Remaining: remaining,
	}})
}

func (e *inventoryEmitter) EmitOutOfStock(m inventory.Material, totals map[inventory.Material]int) {
	e.bus.Emit(Event{Type: EventOutOfStock, Payload: OutOfStockEvent{
		Material: m,
		Totals:   totals,
	}})
}

// plantEmitter bridges worker side effects to the EventBus.
type plantEmitter struct {
	bus *EventBus
}

func (e *plantEmitter) EmitUnitProduced(conveyorID, orderID string, totalProduced int) {
	e.bus.Emit(Event{Type: EventUnitProduced, Payload: UnitProducedEvent{
		Conveyor: conveyorID,
		OrderID:  orderID,
		Total:    totalProduced,
	}})
}

func (e *plantEmitter) EmitStatusChanged(conveyorID string, from, to plant.Status) {
	e.bus.Emit(Event{Type: EventStatusChanged, Payload: StatusChangedEvent{
		Conveyor: conveyorID,
		From:     from,
		To:       to,
	}})
}

func (e *plantEmitter) EmitMaintenanceDone(conveyorID string, efficiency float64) {
	e.bus.Emit(Event{Type: EventMaintenanceDone, Payload: MaintenanceDoneEvent{
		Conveyor:   conveyorID,
		Efficiency: efficiency,
	}})
}

// schedEmitter bridges order lifecycle events to the EventBus.
type schedEmitter struct {
	bus *EventBus
}

func (e *schedEmitter) EmitOrderCreated(o sched.Order) {
	e.bus.Emit(Event{Type: EventOrderCreated, Payload: OrderEvent{Order: o}})
}

func (e *schedEmitter) EmitOrderAssigned(o sched.Order) {
	e.bus.Emit(Event{Type: EventOrderAssigned, Payload: OrderEvent{Order: o}})
}

func (e *schedEmitter) EmitOrderCompleted(o sched.Order) {
	e.bus.Emit(Event{Type: EventOrderCompleted, Payload: OrderEvent{Order: o}})
}

func (e *schedEmitter) EmitOrderCancelled(o sched.Order, reason string) {
	e.bus.Emit(Event{Type: EventOrderCancelled, Payload: OrderEvent{Order: o, Reason: reason}})
}
