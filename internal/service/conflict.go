package service

import (
	"context"
	"time"

	"fleet/internal/repository"
)

// ConflictResolver decides whether a requested interval on a vehicle is
// free of committed reservations. It is used twice on the creation path:
// once as a fast advisory pre-check, and again against a
// transaction-scoped repository as the authoritative guard.
type ConflictResolver struct {
	reservationRepo repository.ReservationRepository
}

// NewConflictResolver creates a ConflictResolver over the given repository.
func NewConflictResolver(reservationRepo repository.ReservationRepository) *ConflictResolver {
	return &ConflictResolver{reservationRepo: reservationRepo}
}

// CheckAvailable reports whether [start, end) on the vehicle is free of
// reservations in CONFIRMED or IN_PROGRESS state. Cancelled and
// refunded reservations never block.
func (c *ConflictResolver) CheckAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	overlapping, err := c.reservationRepo.FindOverlapping(ctx, vehicleID, start, end)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}

// CheckBookable is the creation-path variant: it additionally treats
// in-flight DRAFT and PENDING_PAYMENT reservations as blocking. Without
// this, two concurrent creations could each pass the guard while
// neither is confirmed yet, and both later confirm over the same
// interval.
func (c *ConflictResolver) CheckBookable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	overlapping, err := c.reservationRepo.FindOverlappingHeld(ctx, vehicleID, start, end)
	if err != nil {
		return false, err
	}
	return len(overlapping) == 0, nil
}
