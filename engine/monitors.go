package engine

import (
	"time"

	"github.com/google/uuid"

	"cellcore/inventory"
)

// inventoryMonitorLoop sweeps warehouse stock against the low-stock
// threshold. With auto-restock enabled it tops the warehouse back up and
// records the delivery in the transfer audit trail.
func (e *Engine) inventoryMonitorLoop() {
	ticker := time.NewTicker(e.cfg.Monitor.InventoryInterval())
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.sweepInventory()
		}
	}
}

func (e *Engine) sweepInventory() {
	threshold := e.cfg.Monitor.LowStockThreshold
	for _, w := range e.warehouses.List() {
		for _, m := range inventory.Required {
			qty := w.Quantity(m)
			if qty > threshold {
				continue
			}
			e.Events.Emit(Event{Type: EventLowStock, Payload: LowStockEvent{
				Warehouse: w.ID,
				Material:  m,
				Remaining: qty,
			}})
			if !e.cfg.Monitor.AutoRestock {
				continue
			}
			newQty, err := e.warehouses.Restock(w.ID, m, e.cfg.Monitor.RestockAmount)
			if err != nil {
				e.logFn("engine: auto-restock %s/%s: %v", w.ID, m, err)
				continue
			}
			e.logFn("engine: auto-restocked %s %s +%d (now %d)", w.ID, m, e.cfg.Monitor.RestockAmount, newQty)
			e.Events.Emit(Event{Type: EventTransferCompleted, Payload: inventory.Transfer{
				ID:        uuid.New().String(),
				Warehouse: w.ID,
				Material:  m,
				Quantity:  e.cfg.Monitor.RestockAmount,
				Direction: "in",
				Source:    "supplier",
				Dest:      w.ID,
				MovedAt:   time.Now(),
			}})
		}
	}

	for m, total := range e.warehouses.TotalStock() {
		if total == 0 {
			e.Events.Emit(Event{Type: EventOutOfStock, Payload: OutOfStockEvent{
				Material: m,
				Totals:   e.warehouses.TotalStock(),
			}})
		}
	}
}

// qualityMonitorLoop alerts when the latest pass rate drops below the
// configured floor.
func (e *Engine) qualityMonitorLoop() {
	ticker := time.NewTicker(e.cfg.Monitor.QualityInterval())
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			rate, ok, err := e.db.LatestPassRate()
			if err != nil {
				e.logFn("engine: quality check: %v", err)
				continue
			}
			if !ok {
				continue
			}
			if rate < e.cfg.Monitor.QualityThreshold {
				e.Events.Emit(Event{Type: EventQualityAlert, Payload: QualityAlertEvent{
					PassRate:  rate,
					Threshold: e.cfg.Monitor.QualityThreshold,
				}})
			}
		}
	}
}
