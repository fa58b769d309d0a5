package inventory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cellcore/config"
)

// Material is one of the three raw inputs a line consumes per unit.
type Material string

const (
	Anode       Material = "anode"
	Cathode     Material = "cathode"
	Electrolyte Material = "electrolyte"
)

// Required lists the materials every production cycle consumes one unit of.
var Required = []Material{Anode, Cathode, Electrolyte}

// Warehouse is a named stock of raw materials. Stock is only touched while
// holding mu; the registry never hands out the map itself.
type Warehouse struct {
	ID       string
	Location string
	Priority int // lower rank is preferred for sourcing

	mu    sync.Mutex
	stock map[Material]int
}

// Quantity returns the current stock of one material.
func (w *Warehouse) Quantity(m Material) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stock[m]
}

// Snapshot copies the warehouse stock for status reporting.
func (w *Warehouse) Snapshot() map[Material]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[Material]int, len(w.stock))
	for m, q := range w.stock {
		out[m] = q
	}
	return out
}

// WarehouseSnapshot is the per-warehouse status record for the monitoring
// surface.
type WarehouseSnapshot struct {
	ID       string           `json:"id"`
	Location string           `json:"location"`
	Priority int              `json:"priority"`
	Stock    map[Material]int `json:"stock"`
}

// State returns the full status record for one warehouse.
func (w *Warehouse) State() WarehouseSnapshot {
	return WarehouseSnapshot{
		ID:       w.ID,
		Location: w.Location,
		Priority: w.Priority,
		Stock:    w.Snapshot(),
	}
}

// Registry owns all warehouses. Warehouses are created at initialization and
// never deleted; all stock mutation goes through the Allocator or Restock.
type Registry struct {
	mu         sync.RWMutex
	warehouses map[string]*Warehouse
}

func NewRegistry() *Registry {
	return &Registry{warehouses: make(map[string]*Warehouse)}
}

// NewRegistryFromConfig seeds a registry from the plant config.
func NewRegistryFromConfig(seeds []config.WarehouseSeed) *Registry {
	r := NewRegistry()
	for _, s := range seeds {
		stock := make(map[Material]int, len(s.Stock))
		for m, q := range s.Stock {
			stock[Material(m)] = q
		}
		r.Add(&Warehouse{ID: s.ID, Location: s.Location, Priority: s.Priority, stock: stock})
	}
	return r
}

func (r *Registry) Add(w *Warehouse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.stock == nil {
		w.stock = make(map[Material]int)
	}
	r.warehouses[w.ID] = w
}

func (r *Registry) Get(id string) (*Warehouse, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.warehouses[id]
	return w, ok
}

// List returns all warehouses ordered by ID for deterministic iteration.
func (r *Registry) List() []*Warehouse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Warehouse, 0, len(r.warehouses))
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Restock adds stock to a warehouse. Additive per delivery, not idempotent.
func (r *Registry) Restock(warehouseID string, m Material, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("inventory: restock amount must be positive, got %d", amount)
	}
	w, ok := r.Get(warehouseID)
	if !ok {
		return 0, fmt.Errorf("inventory: warehouse %q not found", warehouseID)
	}
	w.mu.Lock()
	w.stock[m] += amount
	newQty := w.stock[m]
	w.mu.Unlock()
	return newQty, nil
}

// SetLevel overwrites a warehouse material level, used when the upstream
// feed reports an authoritative inventory reading.
func (r *Registry) SetLevel(warehouseID string, m Material, qty int) error {
	if qty < 0 {
		return fmt.Errorf("inventory: level must be non-negative, got %d", qty)
	}
	w, ok := r.Get(warehouseID)
	if !ok {
		return fmt.Errorf("inventory: warehouse %q not found", warehouseID)
	}
	w.mu.Lock()
	w.stock[m] = qty
	w.mu.Unlock()
	return nil
}

// Snapshots returns status records for every warehouse, ID-ordered.
func (r *Registry) Snapshots() []WarehouseSnapshot {
	list := r.List()
	out := make([]WarehouseSnapshot, len(list))
	for i, w := range list {
		out[i] = w.State()
	}
	return out
}

// TotalStock sums stock per material across all warehouses.
func (r *Registry) TotalStock() map[Material]int {
	total := make(map[Material]int, len(Required))
	for _, m := range Required {
		total[m] = 0
	}
	for _, w := range r.List() {
		for m, q := range w.Snapshot() {
			total[m] += q
		}
	}
	return total
}

// Transfer is the immutable audit record of a stock movement.
type Transfer struct {
	ID        string    `json:"id"`
	Warehouse string    `json:"warehouse"`
	Material  Material  `json:"material"`
	Quantity  int       `json:"quantity"`
	Direction string    `json:"direction"` // "in", "out", "transfer"
	Source    string    `json:"source"`
	Dest      string    `json:"dest"`
	MovedAt   time.Time `json:"moved_at"`
}
