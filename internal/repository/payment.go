package repository

import (
	"context"

	"fleet/internal/domain"
)

// PaymentRepository defines the persistence operations for payment attempts.
type PaymentRepository interface {
	// Create persists a new payment attempt.
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error

	// GetByID retrieves a payment attempt by ID.
	GetByID(ctx context.Context, id string) (*domain.PaymentAttempt, error)

	// GetByGatewayRef retrieves a payment attempt by its external gateway
	// reference. Returns nil, nil when no attempt carries the reference:
	// unknown references are expected from duplicate or unrelated
	// gateway deliveries and are not an error.
	GetByGatewayRef(ctx context.Context, ref string) (*domain.PaymentAttempt, error)

	// GetByGatewayRefForUpdate is GetByGatewayRef with a row lock, so
	// concurrent gateway events for the same attempt serialize.
	// Only meaningful inside a transaction.
	GetByGatewayRefForUpdate(ctx context.Context, ref string) (*domain.PaymentAttempt, error)

	// GetActiveByReservationID returns the attempt in PENDING, PROCESSING
	// or COMPLETED state for the reservation, or nil, nil. At most one
	// such attempt may exist per reservation.
	GetActiveByReservationID(ctx context.Context, reservationID string) (*domain.PaymentAttempt, error)

	// UpdateStatus updates the status of a payment attempt.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentAttemptStatus) error
}
