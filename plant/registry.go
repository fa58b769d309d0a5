package plant

import (
	"sort"
	"sync"

	"cellcore/config"
)

// Registry owns all conveyors, created at initialization, never deleted.
type Registry struct {
	mu        sync.RWMutex
	conveyors map[string]*Conveyor
}

func NewRegistry() *Registry {
	return &Registry{conveyors: make(map[string]*Conveyor)}
}

func NewRegistryFromConfig(seeds []config.ConveyorSeed) *Registry {
	r := NewRegistry()
	for _, s := range seeds {
		r.Add(NewConveyor(s))
	}
	return r
}

func (r *Registry) Add(c *Conveyor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conveyors[c.ID] = c
}

func (r *Registry) Get(id string) (*Conveyor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conveyors[id]
	return c, ok
}

// List returns all conveyors ordered by ID for deterministic iteration.
func (r *Registry) List() []*Conveyor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conveyor, 0, len(r.conveyors))
	for _, c := range r.conveyors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshots returns status records for every conveyor, ID-ordered.
func (r *Registry) Snapshots() []Snapshot {
	list := r.List()
	out := make([]Snapshot, len(list))
	for i, c := range list {
		out[i] = c.Snapshot()
	}
	return out
}
