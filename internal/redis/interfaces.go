package redis

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// CacheStoreInterface defines the interface for entity and demand caching.
type CacheStoreInterface interface {
	GetVehicle(ctx context.Context, vehicleID string) (*domain.Vehicle, error)
	SetVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	InvalidateVehicle(ctx context.Context, vehicleID string) error
	GetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time) (*DemandSnapshot, error)
	SetDemandSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time, snapshot *DemandSnapshot) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquirePaymentLock(ctx context.Context, gatewayRef string, ttl time.Duration) (bool, error)
	ReleasePaymentLock(ctx context.Context, gatewayRef string) error
}

// Ensure concrete types implement interfaces.
var (
	_ CacheStoreInterface = (*CacheStore)(nil)
	_ LockStoreInterface  = (*LockStore)(nil)
)
