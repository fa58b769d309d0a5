package engine

import (
	"cellcore/inventory"
	"cellcore/plant"
	"cellcore/sched"
)

const (
	EventTransferCompleted EventType = iota + 1
	EventLowStock
	EventOutOfStock
	EventUnitProduced
	EventStatusChanged
	EventMaintenanceDone
	EventOrderCreated
	EventOrderAssigned
	EventOrderCompleted
	EventOrderCancelled
	EventQualityAlert
	EventSystemAlarm
	EventFeedConnected
	EventFeedDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type LowStockEvent struct {
	Warehouse string
	Material  inventory.Material
	Remaining int
}

type OutOfStockEvent struct {
	Material inventory.Material
	Totals   map[inventory.Material]int
}

type UnitProducedEvent struct {
	Conveyor string
	OrderID  string
	Total    int
}

type StatusChangedEvent struct {
	Conveyor string
	From     plant.Status
	To       plant.Status
}

type MaintenanceDoneEvent struct {
	Conveyor   string
	Efficiency float64
}

type OrderEvent struct {
	Order  sched.Order
	Reason string
}

type QualityAlertEvent struct {
	PassRate  float64
	Threshold float64
}

type SystemAlarmEvent struct {
	Signal string
	Active bool
}

type ConnectionEvent struct {
	Detail string
}
