package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, reservation_id, amount, currency, status, gateway_ref, metadata, created_at, updated_at`

// Create persists a new payment attempt.
func (r *PaymentRepository) Create(ctx context.Context, attempt *domain.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	metadata, err := json.Marshal(attempt.Metadata)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		attempt.ID,
		attempt.ReservationID,
		attempt.Amount,
		attempt.Currency,
		attempt.Status,
		attempt.GatewayRef,
		metadata,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment attempt by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE id = $1`

	attempt, err := scanPaymentAttempt(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return attempt, nil
}

// GetByGatewayRef retrieves a payment attempt by its gateway reference.
// Returns nil, nil when no attempt carries the reference.
func (r *PaymentRepository) GetByGatewayRef(ctx context.Context, ref string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE gateway_ref = $1`
	return r.getByGatewayRef(ctx, query, ref)
}

// GetByGatewayRefForUpdate is GetByGatewayRef with a row lock so that
// concurrent gateway events for the same attempt serialize.
func (r *PaymentRepository) GetByGatewayRefForUpdate(ctx context.Context, ref string) (*domain.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_attempts WHERE gateway_ref = $1 FOR UPDATE`
	return r.getByGatewayRef(ctx, query, ref)
}

func (r *PaymentRepository) getByGatewayRef(ctx context.Context, query, ref string) (*domain.PaymentAttempt, error) {
	attempt, err := scanPaymentAttempt(r.q.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Unknown references are expected, not an error.
		}
		return nil, err
	}
	return attempt, nil
}

// GetActiveByReservationID returns the single active attempt for a
// reservation, or nil, nil.
func (r *PaymentRepository) GetActiveByReservationID(ctx context.Context, reservationID string) (*domain.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payment_attempts
		WHERE reservation_id = $1 AND status IN ($2, $3, $4)
	`

	attempt, err := scanPaymentAttempt(r.q.QueryRowContext(ctx, query,
		reservationID,
		domain.PaymentAttemptPending,
		domain.PaymentAttemptProcessing,
		domain.PaymentAttemptCompleted,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return attempt, nil
}

// UpdateStatus updates the status of a payment attempt.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentAttemptStatus) error {
	query := `UPDATE payment_attempts SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanPaymentAttempt(row rowScanner) (*domain.PaymentAttempt, error) {
	var attempt domain.PaymentAttempt
	var metadata []byte

	err := row.Scan(
		&attempt.ID,
		&attempt.ReservationID,
		&attempt.Amount,
		&attempt.Currency,
		&attempt.Status,
		&attempt.GatewayRef,
		&metadata,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &attempt.Metadata); err != nil {
			return nil, err
		}
	}
	return &attempt, nil
}
