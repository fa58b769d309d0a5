package statestore

import (
	"context"
	"log"
	"sort"

	"cellcore/inventory"
	"cellcore/plant"
)

// Manager keeps Redis in step with the live registries: registry first, then
// Redis. A nil redis store degrades to registry-only reads so the core runs
// without a cache.
type Manager struct {
	lines      *plant.Registry
	warehouses *inventory.Registry
	redis      *RedisStore
}

func NewManager(lines *plant.Registry, warehouses *inventory.Registry, redis *RedisStore) *Manager {
	return &Manager{lines: lines, warehouses: warehouses, redis: redis}
}

// SyncAll rebuilds the full Redis mirror from the registries. Called on
// startup and after a cache reconnect.
func (m *Manager) SyncAll() {
	if m.redis == nil {
		return
	}
	ctx := context.Background()
	m.redis.FlushCellKeys(ctx)
	n := 0
	for _, snap := range m.lines.Snapshots() {
		if err := m.redis.SetConveyor(ctx, snap); err != nil {
			log.Printf("statestore: sync conveyor %s: %v", snap.ID, err)
			continue
		}
		n++
	}
	for _, snap := range m.warehouses.Snapshots() {
		if err := m.redis.SetWarehouse(ctx, snap); err != nil {
			log.Printf("statestore: sync warehouse %s: %v", snap.ID, err)
			continue
		}
		n++
	}
	log.Printf("statestore: synced %d records to redis", n)
}

// RefreshConveyor pushes one conveyor's current snapshot into Redis.
func (m *Manager) RefreshConveyor(id string) {
	if m.redis == nil {
		return
	}
	c, ok := m.lines.Get(id)
	if !ok {
		return
	}
	if err := m.redis.SetConveyor(context.Background(), c.Snapshot()); err != nil {
		log.Printf("statestore: refresh conveyor %s: %v", id, err)
	}
}

// RefreshWarehouse pushes one warehouse's current snapshot into Redis.
func (m *Manager) RefreshWarehouse(id string) {
	if m.redis == nil {
		return
	}
	w, ok := m.warehouses.Get(id)
	if !ok {
		return
	}
	if err := m.redis.SetWarehouse(context.Background(), w.State()); err != nil {
		log.Printf("statestore: refresh warehouse %s: %v", id, err)
	}
}

// PublishHealth mirrors the health summary for external readers.
func (m *Manager) PublishHealth(payload any) {
	if m.redis == nil {
		return
	}
	if err := m.redis.SetHealth(context.Background(), payload); err != nil {
		log.Printf("statestore: publish health: %v", err)
	}
}

// ConveyorStates reads conveyor records, preferring Redis so out-of-process
// callers see the same view; falls back to the registry.
func (m *Manager) ConveyorStates() []plant.Snapshot {
	if m.redis != nil {
		ctx := context.Background()
		ids, err := m.redis.ConveyorIDs(ctx)
		if err == nil && len(ids) > 0 {
			sort.Strings(ids)
			out := make([]plant.Snapshot, 0, len(ids))
			for _, id := range ids {
				snap, err := m.redis.GetConveyor(ctx, id)
				if err != nil || snap == nil {
					out = nil
					break
				}
				out = append(out, *snap)
			}
			if out != nil {
				return out
			}
		}
	}
	return m.lines.Snapshots()
}

// WarehouseStates mirrors ConveyorStates for warehouses.
func (m *Manager) WarehouseStates() []inventory.WarehouseSnapshot {
	if m.redis != nil {
		ctx := context.Background()
		ids, err := m.redis.WarehouseIDs(ctx)
		if err == nil && len(ids) > 0 {
			sort.Strings(ids)
			out := make([]inventory.WarehouseSnapshot, 0, len(ids))
			for _, id := range ids {
				snap, err := m.redis.GetWarehouse(ctx, id)
				if err != nil || snap == nil {
					out = nil
					break
				}
				out = append(out, *snap)
			}
			if out != nil {
				return out
			}
		}
	}
	return m.warehouses.Snapshots()
}
