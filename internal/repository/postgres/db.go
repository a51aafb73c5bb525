package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleet/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

// WithinTx runs fn inside one database transaction with
// transaction-scoped repositories.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	repos := repository.Repos{
		Vehicles:      NewVehicleRepositoryWithTx(tx),
		Reservations:  NewReservationRepositoryWithTx(tx),
		Payments:      NewPaymentRepositoryWithTx(tx),
		Notifications: NewNotificationRepositoryWithTx(tx),
	}

	if err := fn(ctx, repos); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
