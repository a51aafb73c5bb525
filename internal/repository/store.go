package repository

import "context"

// Repos bundles the repositories scoped to one transaction.
type Repos struct {
	Vehicles      VehicleRepository
	Reservations  ReservationRepository
	Payments      PaymentRepository
	Notifications NotificationRepository
}

// Store provides transactional access to the repositories. The
// reservation-commit and payment-sync critical sections run inside
// WithinTx; all serialization between concurrent requests comes from
// the store's transactional guarantees.
type Store interface {
	// WithinTx runs fn inside one atomic transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
