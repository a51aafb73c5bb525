package domain

import "time"

// PaymentAttemptStatus represents the current status of a payment attempt.
type PaymentAttemptStatus string

const (
	PaymentAttemptPending    PaymentAttemptStatus = "PENDING"
	PaymentAttemptProcessing PaymentAttemptStatus = "PROCESSING"
	PaymentAttemptCompleted  PaymentAttemptStatus = "COMPLETED"
	PaymentAttemptFailed     PaymentAttemptStatus = "FAILED"
	PaymentAttemptCancelled  PaymentAttemptStatus = "CANCELLED"
)

// Active reports whether the attempt counts against the at-most-one-active
// invariant: a reservation may have at most one attempt in
// {PENDING, PROCESSING, COMPLETED} at a time.
func (s PaymentAttemptStatus) Active() bool {
	return s == PaymentAttemptPending || s == PaymentAttemptProcessing || s == PaymentAttemptCompleted
}

// Terminal reports whether the attempt can no longer change.
func (s PaymentAttemptStatus) Terminal() bool {
	return s == PaymentAttemptCompleted || s == PaymentAttemptFailed || s == PaymentAttemptCancelled
}

// PaymentAttempt is one attempted payment transaction tied to a reservation.
type PaymentAttempt struct {
	ID            string
	ReservationID string
	Amount        float64
	Currency      string
	Status        PaymentAttemptStatus
	GatewayRef    string
	Metadata      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
