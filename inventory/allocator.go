package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// OutcomeKind classifies the result of a refill attempt.
type OutcomeKind int

const (
	None OutcomeKind = iota
	Partial
	Full
)

func (k OutcomeKind) String() string {
	switch k {
	case Full:
		return "full"
	case Partial:
		return "partial"
	default:
		return "none"
	}
}

// Outcome is the result of a single-material refill.
type Outcome struct {
	Kind   OutcomeKind
	Amount int
	Source string // warehouse the material came from, empty for None
}

// Destination is the receiving side of a transfer, typically a conveyor
// buffer. TakeDelivery is called with the source warehouse lock held, so the
// deduct-and-deposit pair is observed as one operation.
type Destination interface {
	ConveyorID() string
	PreferredWarehouse() string
	BufferRoom(m Material) int
	TakeDelivery(m Material, qty int) int
}

// Emitter receives allocation side effects: the transfer audit trail and
// stock alerts. The engine bridges this onto its event bus.
type Emitter interface {
	EmitTransfer(t Transfer)
	EmitLowStock(warehouseID string, m Material, remaining int)
	EmitOutOfStock(m Material, total map[Material]int)
}

// Allocator decides which warehouse supplies a conveyor's material shortfall.
type Allocator struct {
	reg     *Registry
	emitter Emitter
}

func NewAllocator(reg *Registry, emitter Emitter) *Allocator {
	return &Allocator{reg: reg, emitter: emitter}
}

// Refill moves up to requested units of m into dest.
//
// Source selection: the destination's preferred warehouse if it holds the
// full amount; otherwise the warehouse with the lowest priority rank that
// does, ties broken by warehouse ID ascending; otherwise any warehouse with
// stock for a partial transfer that drains it. Partial and None outcomes
// emit a stock alert.
func (a *Allocator) Refill(dest Destination, m Material, requested int) Outcome {
	if requested <= 0 {
		return Outcome{Kind: None}
	}
	if room := dest.BufferRoom(m); room < requested {
		requested = room
	}
	if requested <= 0 {
		return Outcome{Kind: None}
	}

	if w, ok := a.reg.Get(dest.PreferredWarehouse()); ok {
		if out, done := a.transferFull(w, dest, m, requested); done {
			return out
		}
	}

	if w := a.pickFullSource(dest.PreferredWarehouse(), m, requested); w != nil {
		if out, done := a.transferFull(w, dest, m, requested); done {
			return out
		}
	}

	// No single warehouse holds the full amount: drain whichever has stock.
	for _, w := range a.reg.List() {
		if out, done := a.transferPartial(w, dest, m); done {
			return out
		}
	}

	a.emitter.EmitOutOfStock(m, a.reg.TotalStock())
	return Outcome{Kind: None}
}

// pickFullSource returns the best-ranked warehouse holding >= requested of
// m, excluding the already-tried preferred warehouse. List() is ID-ordered,
// so a stable sort on priority preserves the ID tie-break.
func (a *Allocator) pickFullSource(exclude string, m Material, requested int) *Warehouse {
	var candidates []*Warehouse
	for _, w := range a.reg.List() {
		if w.ID == exclude {
			continue
		}
		if w.Quantity(m) >= requested {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority < candidates[j].Priority
	})
	return candidates[0]
}

func (a *Allocator) transferFull(w *Warehouse, dest Destination, m Material, requested int) (Outcome, bool) {
	w.mu.Lock()
	if w.stock[m] < requested {
		w.mu.Unlock()
		return Outcome{}, false
	}
	accepted := dest.TakeDelivery(m, requested)
	w.stock[m] -= accepted
	w.mu.Unlock()

	if accepted == 0 {
		return Outcome{Kind: None}, true
	}
	a.record(w.ID, dest.ConveyorID(), m, accepted)
	return Outcome{Kind: Full, Amount: accepted, Source: w.ID}, true
}

func (a *Allocator) transferPartial(w *Warehouse, dest Destination, m Material) (Outcome, bool) {
	w.mu.Lock()
	available := w.stock[m]
	if available <= 0 {
		w.mu.Unlock()
		return Outcome{}, false
	}
	accepted := dest.TakeDelivery(m, available)
	w.stock[m] -= accepted
	remaining := w.stock[m]
	w.mu.Unlock()

	if accepted == 0 {
		return Outcome{}, false
	}
	a.record(w.ID, dest.ConveyorID(), m, accepted)
	a.emitter.EmitLowStock(w.ID, m, remaining)
	return Outcome{Kind: Partial, Amount: accepted, Source: w.ID}, true
}

func (a *Allocator) record(source, dest string, m Material, qty int) {
	a.emitter.EmitTransfer(Transfer{
		ID:        uuid.New().String(),
		Warehouse: source,
		Material:  m,
		Quantity:  qty,
		Direction: "transfer",
		Source:    source,
		Dest:      dest,
		MovedAt:   time.Now(),
	})
}
