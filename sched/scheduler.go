package sched

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cellcore/plant"
)

// Status is the closed set of production order states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusOnHold     Status = "on_hold"
)

var (
	ErrOrderNotFound    = errors.New("sched: order not found")
	ErrOrderNotPending  = errors.New("sched: order not pending")
	ErrConveyorNotFound = errors.New("sched: conveyor not found")
	ErrConveyorBusy     = errors.New("sched: conveyor already has an active order")
)

// Order is a unit-of-work request tracked to completion.
type Order struct {
	ID          string    `json:"id"`
	ProductType string    `json:"product_type"`
	Quantity    int       `json:"quantity"`
	Produced    int       `json:"produced"`
	Priority    int       `json:"priority"` // higher is served first
	Status      Status    `json:"status"`
	Conveyor    string    `json:"conveyor,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Emitter receives scheduler side effects for auditing and persistence.
type Emitter interface {
	EmitOrderCreated(o Order)
	EmitOrderAssigned(o Order)
	EmitOrderCompleted(o Order)
	EmitOrderCancelled(o Order, reason string)
}

// Scheduler maintains the order book and pairs pending orders with idle
// lines. All order state lives behind one mutex; conveyor binding goes
// through the plant registry.
type Scheduler struct {
	mu      sync.Mutex
	orders  map[string]*Order
	lines   *plant.Registry
	emitter Emitter
	now     func() time.Time
}

func New(lines *plant.Registry, emitter Emitter) *Scheduler {
	return &Scheduler{
		orders:  make(map[string]*Order),
		lines:   lines,
		emitter: emitter,
		now:     time.Now,
	}
}

// CreateOrder registers a new pending order and returns its ID.
func (s *Scheduler) CreateOrder(productType string, quantity, priority int) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("sched: quantity must be positive, got %d", quantity)
	}
	o := &Order{
		ID:          "PO-" + uuid.New().String()[:8],
		ProductType: productType,
		Quantity:    quantity,
		Priority:    priority,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	s.mu.Lock()
	s.orders[o.ID] = o
	snap := *o
	s.mu.Unlock()

	s.emitter.EmitOrderCreated(snap)
	return o.ID, nil
}

// AssignOrder binds a pending order to a specific conveyor. Nothing is
// mutated on failure.
func (s *Scheduler) AssignOrder(orderID, conveyorID string) error {
	line, ok := s.lines.Get(conveyorID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConveyorNotFound, conveyorID)
	}

	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if o.Status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrOrderNotPending, orderID, o.Status)
	}
	if line.CurrentOrder() != "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConveyorBusy, conveyorID)
	}
	o.Status = StatusInProgress
	o.Conveyor = conveyorID
	o.StartedAt = s.now()
	snap := *o
	s.mu.Unlock()

	line.SetOrder(orderID)
	s.emitter.EmitOrderAssigned(snap)
	return nil
}

// AutoAssign greedily pairs pending orders with idle lines: highest
// priority first, creation time ascending on ties; conveyors by ID
// ascending. Returns the number of assignments made.
func (s *Scheduler) AutoAssign() int {
	var free []*plant.Conveyor
	for _, c := range s.lines.List() {
		if c.Status() == plant.StatusIdle && c.CurrentOrder() == "" && c.Enabled() {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return 0
	}

	s.mu.Lock()
	var pending []*Order
	for _, o := range s.orders {
		if o.Status == StatusPending {
			pending = append(pending, o)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	s.mu.Unlock()

	assigned := 0
	for _, o := range pending {
		if assigned >= len(free) {
			break
		}
		if err := s.AssignOrder(o.ID, free[assigned].ID); err == nil {
			assigned++
		}
	}
	return assigned
}

// RecordProduction credits one produced unit to the active order on the
// conveyor. Safe to call when the line has no order or the order already
// completed: those units are not attributed.
func (s *Scheduler) RecordProduction(conveyorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Conveyor == conveyorID && o.Status == StatusInProgress {
			if o.Produced < o.Quantity {
				o.Produced++
			}
			return
		}
	}
}

// SetProduction overwrites the produced count of the active order on the
// conveyor with an absolute upstream count. Counts never move backwards and
// never exceed the ordered quantity.
func (s *Scheduler) SetProduction(conveyorID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Conveyor == conveyorID && o.Status == StatusInProgress {
			if count > o.Quantity {
				count = o.Quantity
			}
			if count > o.Produced {
				o.Produced = count
			}
			return
		}
	}
}

// CheckCompletion closes any in-progress order whose produced count reached
// its quantity and releases the conveyor. Runs every scheduler tick.
func (s *Scheduler) CheckCompletion() []Order {
	s.mu.Lock()
	var done []Order
	for _, o := range s.orders {
		if o.Status == StatusInProgress && o.Produced >= o.Quantity {
			o.Status = StatusCompleted
			o.CompletedAt = s.now()
			done = append(done, *o)
		}
	}
	s.mu.Unlock()

	for _, o := range done {
		if line, ok := s.lines.Get(o.Conveyor); ok {
			line.ClearOrder()
		}
		s.emitter.EmitOrderCompleted(o)
	}
	return done
}

// Cancel moves a pending or in-progress order to cancelled and releases its
// conveyor. Re-delivery is a no-op.
func (s *Scheduler) Cancel(orderID, reason string) error {
	s.mu.Lock()
	o, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if o.Status == StatusCancelled {
		s.mu.Unlock()
		return nil
	}
	if o.Status == StatusCompleted {
		s.mu.Unlock()
		return fmt.Errorf("sched: order %s already completed", orderID)
	}
	conveyor := o.Conveyor
	o.Status = StatusCancelled
	o.Conveyor = ""
	snap := *o
	s.mu.Unlock()

	if conveyor != "" {
		if line, ok := s.lines.Get(conveyor); ok {
			line.ClearOrder()
		}
	}
	s.emitter.EmitOrderCancelled(snap, reason)
	return nil
}

// Hold parks a pending order; Resume puts it back in the pending pool.
func (s *Scheduler) Hold(orderID string) error {
	return s.setStatus(orderID, StatusPending, StatusOnHold)
}

func (s *Scheduler) Resume(orderID string) error {
	return s.setStatus(orderID, StatusOnHold, StatusPending)
}

func (s *Scheduler) setStatus(orderID string, from, to Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if o.Status != from {
		return fmt.Errorf("sched: order %s is %s, want %s", orderID, o.Status, from)
	}
	o.Status = to
	return nil
}

// Get returns a copy of one order.
func (s *Scheduler) Get(orderID string) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// List returns copies of all orders, newest first.
func (s *Scheduler) List() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Load restores an order, used at startup to rehydrate from the store.
func (s *Scheduler) Load(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := o
	s.orders[o.ID] = &cp
	if o.Status == StatusInProgress && o.Conveyor != "" {
		if line, ok := s.lines.Get(o.Conveyor); ok {
			line.SetOrder(o.ID)
		}
	}
}
