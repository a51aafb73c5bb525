package repository

import (
	"context"

	"fleet/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
// The fleet inventory is read-mostly from the reservation core's
// perspective.
type VehicleRepository interface {
	// Create persists a new vehicle.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// GetAll retrieves all vehicles.
	GetAll(ctx context.Context) ([]*domain.Vehicle, error)

	// CountAvailable counts active, available vehicles of the given
	// category at the given location. Used by the demand estimator.
	CountAvailable(ctx context.Context, category domain.VehicleCategory, location string) (int, error)

	// UpdateStatus updates the operational status of a vehicle.
	UpdateStatus(ctx context.Context, id string, status domain.VehicleStatus) error
}
