package repository

import (
	"context"
	"time"

	"fleet/internal/domain"
)

// ReservationRepository defines the persistence operations for reservations
// and their route stops and add-on selections.
type ReservationRepository interface {
	// Create persists a new reservation.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// LockVehicle takes an exclusive per-vehicle lock held for the rest
	// of the surrounding transaction, so the authoritative conflict
	// check and the insert are atomic per vehicle. Only meaningful
	// inside Store.WithinTx.
	LockVehicle(ctx context.Context, vehicleID string) error

	// GetByID retrieves a reservation by ID.
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// GetAll retrieves recent reservations.
	GetAll(ctx context.Context) ([]*domain.Reservation, error)

	// Update updates an existing reservation.
	Update(ctx context.Context, reservation *domain.Reservation) error

	// DeleteDraft removes a reservation that is still in DRAFT state.
	// Returns ErrDraftOnly if the reservation has been committed.
	DeleteDraft(ctx context.Context, id string) error

	// FindOverlapping returns reservations on the vehicle whose interval
	// overlaps [start, end) and whose status blocks the vehicle
	// (CONFIRMED or IN_PROGRESS).
	FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error)

	// FindOverlappingHeld is FindOverlapping widened to in-flight
	// reservations (DRAFT, PENDING_PAYMENT) as well. Used by the creation
	// guard: two concurrent creations must not both claim the interval
	// even though neither is confirmed yet.
	FindOverlappingHeld(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error)

	// CountActiveInWindow counts reservations of the given vehicle
	// category and location whose interval intersects [start, end) and
	// whose status is PENDING_PAYMENT, CONFIRMED or IN_PROGRESS.
	// Used by the demand estimator.
	CountActiveInWindow(ctx context.Context, category domain.VehicleCategory, location string, start, end time.Time) (int, error)

	// AddRouteStops persists the ordered route stops of a reservation.
	AddRouteStops(ctx context.Context, stops []domain.RouteStop) error

	// RouteStops retrieves the route stops of a reservation in order.
	RouteStops(ctx context.Context, reservationID string) ([]domain.RouteStop, error)

	// AddAddOnSelections persists the add-on selections of a reservation.
	AddAddOnSelections(ctx context.Context, selections []domain.AddOnSelection) error

	// AddOnSelections retrieves the add-on selections of a reservation.
	AddOnSelections(ctx context.Context, reservationID string) ([]domain.AddOnSelection, error)
}
