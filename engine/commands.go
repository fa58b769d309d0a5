package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cellcore/inventory"
	"cellcore/plant"
)

// Command is the operator command envelope, arriving over the command topic
// or the HTTP surface.
type Command struct {
	Command     string `json:"command"`
	ConveyorID  string `json:"conveyor_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	Material    string `json:"material,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// HandleCommand is the feed adapter's command callback. Bad commands are
// logged and dropped; the feed is not a trusted surface.
func (e *Engine) HandleCommand(topic string, payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		e.logFn("engine: bad command on %s: %v", topic, err)
		return
	}
	if result, err := e.Execute(cmd); err != nil {
		e.logFn("engine: command %s: %v", cmd.Command, err)
	} else if result != "" {
		e.logFn("engine: command %s: %s", cmd.Command, result)
	}
}

// Execute runs one operator command and returns a human-readable result.
func (e *Engine) Execute(cmd Command) (string, error) {
	switch cmd.Command {
	case "start":
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		line.Start()
		e.state.RefreshConveyor(line.ID)
		return fmt.Sprintf("%s started", line.ID), nil

	case "stop":
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		line.Stop()
		e.state.RefreshConveyor(line.ID)
		return fmt.Sprintf("%s stopped", line.ID), nil

	case "emergency_stop":
		// With no target the stop applies plant-wide
		if cmd.ConveyorID == "" {
			for _, line := range e.lines.List() {
				line.EmergencyStop()
				e.state.RefreshConveyor(line.ID)
			}
			e.Events.Emit(Event{Type: EventSystemAlarm, Payload: SystemAlarmEvent{Signal: "emergency_stop", Active: true}})
			return "all lines emergency stopped", nil
		}
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		line.EmergencyStop()
		e.state.RefreshConveyor(line.ID)
		return fmt.Sprintf("%s emergency stopped", line.ID), nil

	case "reset":
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		line.Reset()
		e.state.RefreshConveyor(line.ID)
		return fmt.Sprintf("%s reset", line.ID), nil

	case "move_from_warehouse":
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		if cmd.Quantity <= 0 {
			return "", fmt.Errorf("engine: quantity must be positive, got %d", cmd.Quantity)
		}
		var dest inventory.Destination = line
		if cmd.WarehouseID != "" {
			if _, ok := e.warehouses.Get(cmd.WarehouseID); !ok {
				return "", fmt.Errorf("engine: warehouse %q not found", cmd.WarehouseID)
			}
			dest = pinnedSource{Conveyor: line, warehouse: cmd.WarehouseID}
		}
		out := e.alloc.Refill(dest, inventory.Material(cmd.Material), cmd.Quantity)
		if out.Kind == inventory.None {
			return "", fmt.Errorf("engine: no %s available for %s", cmd.Material, line.ID)
		}
		return fmt.Sprintf("%s transfer of %d %s from %s to %s", out.Kind, out.Amount, cmd.Material, out.Source, line.ID), nil

	case "assign_warehouse":
		line, err := e.line(cmd.ConveyorID)
		if err != nil {
			return "", err
		}
		if _, ok := e.warehouses.Get(cmd.WarehouseID); !ok {
			return "", fmt.Errorf("engine: warehouse %q not found", cmd.WarehouseID)
		}
		old := line.AssignWarehouse(cmd.WarehouseID)
		e.state.RefreshConveyor(line.ID)
		return fmt.Sprintf("%s warehouse %s -> %s", line.ID, old, cmd.WarehouseID), nil

	case "restock_warehouse":
		newQty, err := e.warehouses.Restock(cmd.WarehouseID, inventory.Material(cmd.Material), cmd.Quantity)
		if err != nil {
			return "", err
		}
		e.Events.Emit(Event{Type: EventTransferCompleted, Payload: inventory.Transfer{
			ID:        uuid.New().String(),
			Warehouse: cmd.WarehouseID,
			Material:  inventory.Material(cmd.Material),
			Quantity:  cmd.Quantity,
			Direction: "in",
			Source:    "supplier",
			Dest:      cmd.WarehouseID,
			MovedAt:   time.Now(),
		}})
		return fmt.Sprintf("%s %s restocked to %d", cmd.WarehouseID, cmd.Material, newQty), nil

	case "create_order":
		id, err := e.scheduler.CreateOrder(cmd.ProductType, cmd.Quantity, cmd.Priority)
		if err != nil {
			return "", err
		}
		return id, nil

	case "assign_order":
		if err := e.scheduler.AssignOrder(cmd.OrderID, cmd.ConveyorID); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s assigned to %s", cmd.OrderID, cmd.ConveyorID), nil

	case "cancel_order":
		if err := e.scheduler.Cancel(cmd.OrderID, cmd.Reason); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s cancelled", cmd.OrderID), nil

	default:
		return "", fmt.Errorf("engine: unknown command %q", cmd.Command)
	}
}

// pinnedSource overrides the line's preferred warehouse for one explicit
// move command.
type pinnedSource struct {
	*plant.Conveyor
	warehouse string
}

func (p pinnedSource) PreferredWarehouse() string { return p.warehouse }

func (e *Engine) line(id string) (*plant.Conveyor, error) {
	if id == "" {
		return nil, fmt.Errorf("engine: conveyor_id required")
	}
	line, ok := e.lines.Get(id)
	if !ok {
		return nil, fmt.Errorf("engine: conveyor %q not found", id)
	}
	return line, nil
}
