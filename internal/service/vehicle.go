package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
)

// VehicleService manages the bookable fleet.
type VehicleService struct {
	vehicleRepo repository.VehicleRepository
	cacheStore  redis.CacheStoreInterface // optional
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(vehicleRepo repository.VehicleRepository, cacheStore redis.CacheStoreInterface) *VehicleService {
	return &VehicleService{vehicleRepo: vehicleRepo, cacheStore: cacheStore}
}

// CreateVehicleRequest contains the parameters for registering a vehicle.
type CreateVehicleRequest struct {
	Name     string
	Category domain.VehicleCategory
	Capacity int
	Location string
	Tariff   domain.Tariff
}

// CreateVehicle registers a new vehicle, available immediately.
func (s *VehicleService) CreateVehicle(ctx context.Context, req CreateVehicleRequest) (*domain.Vehicle, error) {
	if req.Name == "" || req.Capacity <= 0 {
		return nil, ErrInvalidVehicle
	}
	switch req.Category {
	case domain.VehicleCategorySedan, domain.VehicleCategorySUV, domain.VehicleCategoryVan, domain.VehicleCategoryBus:
	default:
		return nil, ErrInvalidVehicle
	}

	vehicle := &domain.Vehicle{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Category:  req.Category,
		Capacity:  req.Capacity,
		Location:  req.Location,
		Tariff:    req.Tariff,
		Status:    domain.VehicleStatusAvailable,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

// GetVehicle retrieves a vehicle by ID, cache-aside.
func (s *VehicleService) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	if id == "" {
		return nil, ErrInvalidVehicleID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetVehicle(ctx, id)
		if err != nil {
			log.Printf("vehicle cache read: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetVehicle(ctx, vehicle); err != nil {
			log.Printf("vehicle cache write: %v", err)
		}
	}
	return vehicle, nil
}

// ListVehicles retrieves all registered vehicles.
func (s *VehicleService) ListVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	return s.vehicleRepo.GetAll(ctx)
}

// UpdateStatus changes a vehicle's availability and drops its cache entry.
func (s *VehicleService) UpdateStatus(ctx context.Context, id string, status domain.VehicleStatus) error {
	if id == "" {
		return ErrInvalidVehicleID
	}
	switch status {
	case domain.VehicleStatusAvailable, domain.VehicleStatusUnavailable:
	default:
		return ErrInvalidVehicle
	}

	if err := s.vehicleRepo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.InvalidateVehicle(ctx, id); err != nil {
			log.Printf("vehicle cache invalidate: %v", err)
		}
	}
	return nil
}
