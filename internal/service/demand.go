package service

import (
	"context"
	"log"
	"time"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
)

// demandWindow is the fixed window around the requested interval used to
// measure concurrent demand, regardless of interval length.
const demandWindow = 2 * time.Hour

// DemandEstimator derives a discrete demand multiplier from the ratio of
// active reservations to available vehicles of the same class and
// location. Reads are cached briefly in Redis; the estimator itself
// holds no mutable state.
type DemandEstimator struct {
	vehicleRepo     repository.VehicleRepository
	reservationRepo repository.ReservationRepository
	cacheStore      redis.CacheStoreInterface
}

// NewDemandEstimator creates a new DemandEstimator. cacheStore may be nil.
func NewDemandEstimator(
	vehicleRepo repository.VehicleRepository,
	reservationRepo repository.ReservationRepository,
	cacheStore redis.CacheStoreInterface,
) *DemandEstimator {
	return &DemandEstimator{
		vehicleRepo:     vehicleRepo,
		reservationRepo: reservationRepo,
		cacheStore:      cacheStore,
	}
}

// Multiplier returns the demand multiplier for a vehicle class and
// location around the interval [start, end). On storage errors it fails
// open to 1.0 so pricing never blocks on the demand signal.
func (e *DemandEstimator) Multiplier(ctx context.Context, category domain.VehicleCategory, location string, start, end time.Time) float64 {
	windowStart := start.Add(-demandWindow)
	windowEnd := end.Add(demandWindow)

	snapshot := e.cachedSnapshot(ctx, category, location, windowStart)
	if snapshot == nil {
		active, err := e.reservationRepo.CountActiveInWindow(ctx, category, location, windowStart, windowEnd)
		if err != nil {
			log.Printf("demand estimator: counting reservations: %v", err)
			return 1.0
		}

		available, err := e.vehicleRepo.CountAvailable(ctx, category, location)
		if err != nil {
			log.Printf("demand estimator: counting vehicles: %v", err)
			return 1.0
		}

		snapshot = &redis.DemandSnapshot{Active: active, Available: available}
		if e.cacheStore != nil {
			if err := e.cacheStore.SetDemandSnapshot(ctx, category, location, windowStart, snapshot); err != nil {
				log.Printf("demand estimator: caching snapshot: %v", err)
			}
		}
	}

	return bucketMultiplier(snapshot.Active, snapshot.Available)
}

func (e *DemandEstimator) cachedSnapshot(ctx context.Context, category domain.VehicleCategory, location string, windowStart time.Time) *redis.DemandSnapshot {
	if e.cacheStore == nil {
		return nil
	}
	snapshot, err := e.cacheStore.GetDemandSnapshot(ctx, category, location, windowStart)
	if err != nil {
		log.Printf("demand estimator: cache read: %v", err)
		return nil
	}
	return snapshot
}

// bucketMultiplier maps the demand/supply ratio onto discrete
// multipliers. Zero availability forces the maximum regardless of ratio.
func bucketMultiplier(active, available int) float64 {
	if available == 0 {
		return 2.0
	}

	ratio := float64(active) / float64(available)
	switch {
	case ratio >= 0.8:
		return 2.0
	case ratio >= 0.6:
		return 1.5
	case ratio >= 0.4:
		return 1.25
	case ratio >= 0.2:
		return 1.1
	default:
		return 1.0
	}
}
