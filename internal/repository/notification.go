package repository

import (
	"context"

	"fleet/internal/domain"
)

// NotificationRepository persists append-only notification records.
type NotificationRepository interface {
	// Append persists a notification record. Records are never updated
	// or deleted.
	Append(ctx context.Context, record *domain.NotificationRecord) error

	// ListByReservation retrieves all records for a reservation in
	// chronological order.
	ListByReservation(ctx context.Context, reservationID string) ([]*domain.NotificationRecord, error)
}
