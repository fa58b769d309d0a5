// Package statestore mirrors live cell state into Redis so dashboards and
// sibling services can read it without touching the core. The in-memory
// registries stay authoritative; Redis is a write-through cache.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cellcore/config"
	"cellcore/inventory"
	"cellcore/plant"
)

const (
	keyConveyorPrefix  = "cell:conveyor:"
	keyWarehousePrefix = "cell:warehouse:"
	keyConveyorSet     = "cell:conveyors"
	keyWarehouseSet    = "cell:warehouses"
	keyHealth          = "cell:health"
)

// RedisStore is the thin typed layer over the Redis connection.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) SetConveyor(ctx context.Context, snap plant.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, keyConveyorPrefix+snap.ID, data, 0)
	pipe.SAdd(ctx, keyConveyorSet, snap.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetConveyor(ctx context.Context, id string) (*plant.Snapshot, error) {
	data, err := s.client.Get(ctx, keyConveyorPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap plant.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("statestore: decode conveyor %s: %w", id, err)
	}
	return &snap, nil
}

func (s *RedisStore) ConveyorIDs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, keyConveyorSet).Result()
}

func (s *RedisStore) SetWarehouse(ctx context.Context, snap inventory.WarehouseSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, keyWarehousePrefix+snap.ID, data, 0)
	pipe.SAdd(ctx, keyWarehouseSet, snap.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) GetWarehouse(ctx context.Context, id string) (*inventory.WarehouseSnapshot, error) {
	data, err := s.client.Get(ctx, keyWarehousePrefix+id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap inventory.WarehouseSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("statestore: decode warehouse %s: %w", id, err)
	}
	return &snap, nil
}

func (s *RedisStore) WarehouseIDs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, keyWarehouseSet).Result()
}

func (s *RedisStore) SetHealth(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyHealth, data, 0).Err()
}

func (s *RedisStore) FlushCellKeys(ctx context.Context) {
	ids, _ := s.client.SMembers(ctx, keyConveyorSet).Result()
	for _, id := range ids {
		s.client.Del(ctx, keyConveyorPrefix+id)
	}
	ids, _ = s.client.SMembers(ctx, keyWarehouseSet).Result()
	for _, id := range ids {
		s.client.Del(ctx, keyWarehousePrefix+id)
	}
	s.client.Del(ctx, keyConveyorSet, keyWarehouseSet, keyHealth)
}
