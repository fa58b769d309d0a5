package plant

import (
	"sync"

	"cellcore/config"
	"cellcore/inventory"
)

// Status is the closed set of conveyor states.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusProcessing          Status = "processing"
	StatusWaitingMaterials    Status = "waiting_materials"
	StatusMaintenanceRequired Status = "maintenance_required"
	StatusEmergencyStopped    Status = "emergency_stopped"
)

// Conveyor is one production line: a bounded local material buffer plus the
// line's state. All fields behind mu; the worker and the command surface are
// the only writers.
type Conveyor struct {
	ID          string
	Name        string
	ProductType string
	BufferCap   int

	mu           sync.Mutex
	rate         float64 // units per hour
	warehouse    string  // preferred sourcing warehouse
	buffer       map[inventory.Material]int
	status       Status
	currentOrder string
	enabled      bool
	efficiency   float64
	produced     int
}

func NewConveyor(seed config.ConveyorSeed) *Conveyor {
	buf := make(map[inventory.Material]int, len(seed.Buffer))
	for m, q := range seed.Buffer {
		buf[inventory.Material(m)] = q
	}
	return &Conveyor{
		ID:          seed.ID,
		Name:        seed.Name,
		ProductType: seed.ProductType,
		rate:        seed.Rate,
		BufferCap:   seed.BufferCap,
		warehouse:   seed.Warehouse,
		buffer:      buf,
		status:      StatusIdle,
		enabled:     true,
		efficiency:  90.0,
	}
}

// Rate returns the line's current units-per-hour rate. Telemetry updates it
// from the dispatcher goroutine while the worker paces production on it.
func (c *Conveyor) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Conveyor) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// transition moves the line to a new status. Emergency stop is sticky: only
// Reset leaves it, so a worker mid-cycle can never mask it.
func (c *Conveyor) transition(to Status) (from Status, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from = c.status
	if from == to || from == StatusEmergencyStopped {
		return from, false
	}
	c.status = to
	return from, true
}

func (c *Conveyor) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Start enables the line. Safe to re-deliver.
func (c *Conveyor) Start() {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()
}

// Stop disables the line; the worker parks in idle until Start.
func (c *Conveyor) Stop() {
	c.mu.Lock()
	c.enabled = false
	c.mu.Unlock()
}

// EmergencyStop overrides every other state. Only Reset clears it.
func (c *Conveyor) EmergencyStop() {
	c.mu.Lock()
	c.status = StatusEmergencyStopped
	c.enabled = false
	c.mu.Unlock()
}

// Reset clears an emergency stop and re-enables the line.
func (c *Conveyor) Reset() {
	c.mu.Lock()
	if c.status == StatusEmergencyStopped {
		c.status = StatusIdle
	}
	c.enabled = true
	c.mu.Unlock()
}

func (c *Conveyor) CurrentOrder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentOrder
}

func (c *Conveyor) SetOrder(orderID string) {
	c.mu.Lock()
	c.currentOrder = orderID
	c.mu.Unlock()
}

func (c *Conveyor) ClearOrder() {
	c.mu.Lock()
	c.currentOrder = ""
	c.mu.Unlock()
}

func (c *Conveyor) AssignWarehouse(warehouseID string) (old string) {
	c.mu.Lock()
	old = c.warehouse
	c.warehouse = warehouseID
	c.mu.Unlock()
	return old
}

// ConveyorID implements inventory.Destination.
func (c *Conveyor) ConveyorID() string { return c.ID }

// PreferredWarehouse implements inventory.Destination.
func (c *Conveyor) PreferredWarehouse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warehouse
}

// BufferRoom implements inventory.Destination.
func (c *Conveyor) BufferRoom(m inventory.Material) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.BufferCap - c.buffer[m]
	if room < 0 {
		room = 0
	}
	return room
}

// TakeDelivery implements inventory.Destination: deposits up to qty of m,
// bounded by buffer capacity, and returns the accepted amount.
func (c *Conveyor) TakeDelivery(m inventory.Material, qty int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.BufferCap - c.buffer[m]
	if room <= 0 {
		return 0
	}
	if qty > room {
		qty = room
	}
	c.buffer[m] += qty
	return qty
}

// consumeCycle atomically takes one unit of every required material. On
// shortfall nothing is consumed and the missing materials are returned.
func (c *Conveyor) consumeCycle() (missing []inventory.Material, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range inventory.Required {
		if c.buffer[m] < 1 {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return missing, false
	}
	for _, m := range inventory.Required {
		c.buffer[m]--
	}
	return nil, true
}

// ApplyTelemetry folds a feed metric into the line state. Speed arrives in
// meters per minute and maps onto the hourly unit rate; load is a percentage
// discounted into efficiency.
func (c *Conveyor) ApplyTelemetry(metric string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch metric {
	case "speed":
		if value > 0 {
			c.rate = value * 10
		}
	case "load":
		eff := value / 100 * 85
		if eff > 100 {
			eff = 100
		}
		if eff > 0 {
			c.efficiency = eff
		}
	}
}

// SetProduced overwrites the cumulative unit counter from an authoritative
// upstream count. Values below the current counter are ignored.
func (c *Conveyor) SetProduced(count int) (applied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if count <= c.produced {
		return false
	}
	c.produced = count
	return true
}

func (c *Conveyor) recordUnit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.produced++
	return c.produced
}

func (c *Conveyor) adjustEfficiency(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.efficiency += delta
	if c.efficiency > 99.0 {
		c.efficiency = 99.0
	}
	if c.efficiency < 50.0 {
		c.efficiency = 50.0
	}
	return c.efficiency
}

// Snapshot is the per-conveyor status record for the monitoring surface.
type Snapshot struct {
	ID           string                     `json:"id"`
	Name         string                     `json:"name"`
	Status       Status                     `json:"status"`
	Warehouse    string                     `json:"warehouse"`
	Buffer       map[inventory.Material]int `json:"buffer"`
	CurrentOrder string                     `json:"current_order,omitempty"`
	ProductType  string                     `json:"product_type"`
	Rate         float64                    `json:"rate"`
	Efficiency   float64                    `json:"efficiency"`
	Produced     int                        `json:"produced"`
	Enabled      bool                       `json:"enabled"`
}

func (c *Conveyor) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make(map[inventory.Material]int, len(c.buffer))
	for m, q := range c.buffer {
		buf[m] = q
	}
	return Snapshot{
		ID:           c.ID,
		Name:         c.Name,
		Status:       c.status,
		Warehouse:    c.warehouse,
		Buffer:       buf,
		CurrentOrder: c.currentOrder,
		ProductType:  c.ProductType,
		Rate:         c.rate,
		Efficiency:   c.efficiency,
		Produced:     c.produced,
		Enabled:      c.enabled,
	}
}
