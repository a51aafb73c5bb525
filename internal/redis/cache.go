package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet/internal/domain"
)

// CacheStore handles entity and counter caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	VehicleCacheTTL = 60 * time.Second // Fleet inventory is read-mostly
	DemandCacheTTL  = 30 * time.Second // Demand pressure changes with every booking
)

// Key prefixes
const (
	vehicleCachePrefix = "cache:vehicle:"
	demandCachePrefix  = "cache:demand:"
)

// DemandSnapshot caches the counts behind one demand-multiplier lookup.
type DemandSnapshot struct {
	Active    int `json:"active"`
	Available int `json:"available"`
}

// GetVehicle retrieves a vehicle from cache. A nil result means cache miss.
func (s *CacheStore) GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error) {
	data, err := s.client.Get(ctx, vehicleCachePrefix+vehicleID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var vehicle domain.Vehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// SetVehicle stores a vehicle in cache.
func (s *CacheStore) SetVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	data, err := json.Marshal(vehicle)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, vehicleCachePrefix+vehicle.ID, data, VehicleCacheTTL).Err()
}

// InvalidateVehicle removes a vehicle from cache.
func (s *CacheStore) InvalidateVehicle(ctx context.Context, vehicleID string) error {
	return s.client.Del(ctx, vehicleCachePrefix+vehicleID).Err()
}

// GetDemandSnapshot retrieves cached demand counts for a
// class+location+window key. A nil result means cache miss.
func (s *CacheStore) GetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time) (*DemandSnapshot, error) {
	data, err := s.client.Get(ctx, demandKey(category, location, windowStart)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snapshot DemandSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SetDemandSnapshot stores demand counts for a class+location+window key.
func (s *CacheStore) SetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time, snapshot *DemandSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, demandKey(category, location, windowStart), data, DemandCacheTTL).Err()
}

func demandKey(category domain.VehicleCategory, location string, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", demandCachePrefix, category, location, windowStart.Unix())
}
