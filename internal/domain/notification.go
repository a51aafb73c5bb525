package domain

import "time"

// NotificationKind categorizes audit notifications emitted on
// reservation state transitions and payment events.
type NotificationKind string

const (
	NotificationReservationCreated   NotificationKind = "RESERVATION_CREATED"
	NotificationReservationConfirmed NotificationKind = "RESERVATION_CONFIRMED"
	NotificationReservationStarted   NotificationKind = "RESERVATION_STARTED"
	NotificationReservationCompleted NotificationKind = "RESERVATION_COMPLETED"
	NotificationReservationCancelled NotificationKind = "RESERVATION_CANCELLED"
	NotificationReservationRefunded  NotificationKind = "RESERVATION_REFUNDED"
	NotificationPaymentFailed        NotificationKind = "PAYMENT_FAILED"
	NotificationPaymentAction        NotificationKind = "PAYMENT_ACTION_REQUIRED"
	NotificationPaymentDisputed      NotificationKind = "PAYMENT_DISPUTED"
)

// NotificationRecord is an append-only audit entry. Records are written
// on every successful state transition and never updated or deleted.
type NotificationRecord struct {
	ID            string
	ReservationID string
	Kind          NotificationKind
	Message       string
	Data          map[string]any
	CreatedAt     time.Time
}
