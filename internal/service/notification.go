package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
)

// NotificationPublisher pushes a persisted notification record to a
// delivery channel. Publishing is best-effort.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, record *domain.NotificationRecord) error
}

// NotificationService builds the audit records emitted on reservation
// state transitions and hands committed records to the publisher.
// Records themselves are appended inside the same transaction as the
// transition, so every successful transition carries exactly one record.
type NotificationService struct {
	publisher NotificationPublisher // may be nil
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher NotificationPublisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

// Compose builds a notification record for a reservation.
func (s *NotificationService) Compose(reservationID string, kind domain.NotificationKind, message string, data map[string]any) *domain.NotificationRecord {
	return &domain.NotificationRecord{
		ID:            uuid.New().String(),
		ReservationID: reservationID,
		Kind:          kind,
		Message:       message,
		Data:          data,
		CreatedAt:     time.Now(),
	}
}

// ComposeTransition builds the record for a state transition, naming
// the old and new states.
func (s *NotificationService) ComposeTransition(res *domain.Reservation, from domain.ReservationStatus, kind domain.NotificationKind, message string) *domain.NotificationRecord {
	data := map[string]any{
		"reference":  res.Reference,
		"old_status": string(from),
		"new_status": string(res.Status),
	}
	if res.Status == domain.ReservationStatusCancelled {
		data["refund_amount"] = res.RefundAmount
		data["cancel_reason"] = res.CancelReason
	}
	return s.Compose(res.ID, kind, message, data)
}

// Publish hands a committed record to the delivery channel. Failures
// are logged, never propagated: the record is already durable in
// storage.
func (s *NotificationService) Publish(ctx context.Context, record *domain.NotificationRecord) {
	log.Printf("[NOTIFICATION] kind=%s reservation=%s message=%q",
		record.Kind, record.ReservationID, record.Message)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotification(ctx, record); err != nil {
		log.Printf("notification publish failed: %v", err)
	}
}
