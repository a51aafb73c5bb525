package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
)

// paymentLockTTL bounds how long one delivery may hold the per-payment
// advisory lock.
const paymentLockTTL = 15 * time.Second

// PaymentSynchronizer applies gateway webhook events to payment
// attempts and the reservations they fund. Every event is applied in
// one transaction with the attempt row locked FOR UPDATE, so replayed
// and out-of-order deliveries converge on the same final state.
type PaymentSynchronizer struct {
	store        repository.Store
	stateMachine *StateMachine
	notifier     *NotificationService
	lockStore    redis.LockStoreInterface // optional fast path
}

// NewPaymentSynchronizer creates a new PaymentSynchronizer.
func NewPaymentSynchronizer(
	store repository.Store,
	stateMachine *StateMachine,
	notifier *NotificationService,
	lockStore redis.LockStoreInterface,
) *PaymentSynchronizer {
	return &PaymentSynchronizer{
		store:        store,
		stateMachine: stateMachine,
		notifier:     notifier,
		lockStore:    lockStore,
	}
}

// Apply processes one verified gateway event. A nil error means the
// delivery is consumed and must be acknowledged; that includes events
// for unknown references and events that arrive after the attempt
// reached a terminal status, both of which are no-ops.
func (s *PaymentSynchronizer) Apply(ctx context.Context, event *GatewayEvent) error {
	// The redis lock only reduces contention between concurrent
	// deliveries; the row lock below is what guarantees correctness.
	if s.lockStore != nil {
		acquired, err := s.lockStore.AcquirePaymentLock(ctx, event.Reference, paymentLockTTL)
		if err != nil {
			log.Printf("payment lock for %s: %v", event.Reference, err)
		} else if acquired {
			defer func() {
				if err := s.lockStore.ReleasePaymentLock(ctx, event.Reference); err != nil {
					log.Printf("payment unlock for %s: %v", event.Reference, err)
				}
			}()
		}
	}

	var records []*domain.NotificationRecord

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		attempt, err := r.Payments.GetByGatewayRefForUpdate(ctx, event.Reference)
		if err != nil {
			return err
		}
		if attempt == nil {
			log.Printf("payment event %s for unknown reference %s, acknowledging", event.Kind, event.Reference)
			return nil
		}
		if attempt.Status.Terminal() {
			return nil
		}

		records, err = s.apply(ctx, r, event, attempt)
		return err
	})
	if err != nil {
		return err
	}

	for _, record := range records {
		s.notifier.Publish(ctx, record)
	}
	return nil
}

// apply mutates the attempt and reservation for one non-terminal
// attempt. Returns the records to publish after commit.
func (s *PaymentSynchronizer) apply(ctx context.Context, r repository.Repos, event *GatewayEvent, attempt *domain.PaymentAttempt) ([]*domain.NotificationRecord, error) {
	switch event.Kind {
	case GatewayEventSucceeded:
		return s.applySucceeded(ctx, r, attempt)
	case GatewayEventFailed:
		return s.applyFailed(ctx, r, event, attempt)
	case GatewayEventCancelled:
		return nil, r.Payments.UpdateStatus(ctx, attempt.ID, domain.PaymentAttemptCancelled)
	case GatewayEventRequiresAction:
		return s.applyRequiresAction(ctx, r, attempt)
	case GatewayEventDisputed:
		return s.applyDisputed(ctx, r, event, attempt)
	default:
		log.Printf("ignoring unhandled payment event kind %q for %s", event.Kind, event.Reference)
		return nil, nil
	}
}

func (s *PaymentSynchronizer) applySucceeded(ctx context.Context, r repository.Repos, attempt *domain.PaymentAttempt) ([]*domain.NotificationRecord, error) {
	if err := r.Payments.UpdateStatus(ctx, attempt.ID, domain.PaymentAttemptCompleted); err != nil {
		return nil, err
	}

	res, err := r.Reservations.GetByID(ctx, attempt.ReservationID)
	if err != nil {
		return nil, err
	}

	// A success landing after the reservation left PENDING_PAYMENT
	// (for example a cancellation raced the charge) only settles the
	// attempt; the lifecycle is not forced forward.
	if res.Status != domain.ReservationStatusPendingPayment {
		log.Printf("payment %s succeeded but reservation %s is %s, attempt settled only",
			attempt.GatewayRef, res.Reference, res.Status)
		return nil, nil
	}

	from := res.Status
	if err := s.stateMachine.Apply(res, domain.ReservationStatusConfirmed); err != nil {
		return nil, err
	}
	res.PaymentStatus = domain.ReservationPaymentPaid
	if err := r.Reservations.Update(ctx, res); err != nil {
		return nil, err
	}

	record := s.notifier.ComposeTransition(res, from, domain.NotificationReservationConfirmed,
		fmt.Sprintf("Reservation %s confirmed, payment of %.2f received", res.Reference, attempt.Amount))
	if err := r.Notifications.Append(ctx, record); err != nil {
		return nil, err
	}
	return []*domain.NotificationRecord{record}, nil
}

func (s *PaymentSynchronizer) applyFailed(ctx context.Context, r repository.Repos, event *GatewayEvent, attempt *domain.PaymentAttempt) ([]*domain.NotificationRecord, error) {
	if err := r.Payments.UpdateStatus(ctx, attempt.ID, domain.PaymentAttemptFailed); err != nil {
		return nil, err
	}

	res, err := r.Reservations.GetByID(ctx, attempt.ReservationID)
	if err != nil {
		return nil, err
	}

	// A failure marks the payment only. The reservation stays in
	// PENDING_PAYMENT so a new attempt can be made; expiry of stale
	// pending reservations is a separate concern.
	if res.PaymentStatus != domain.ReservationPaymentPaid {
		res.PaymentStatus = domain.ReservationPaymentFailed
		if err := r.Reservations.Update(ctx, res); err != nil {
			return nil, err
		}
	}

	record := s.notifier.Compose(res.ID, domain.NotificationPaymentFailed,
		fmt.Sprintf("Payment for reservation %s failed: %s", res.Reference, event.Reason),
		map[string]any{"reference": res.Reference, "gateway_ref": attempt.GatewayRef, "reason": event.Reason})
	if err := r.Notifications.Append(ctx, record); err != nil {
		return nil, err
	}
	return []*domain.NotificationRecord{record}, nil
}

func (s *PaymentSynchronizer) applyRequiresAction(ctx context.Context, r repository.Repos, attempt *domain.PaymentAttempt) ([]*domain.NotificationRecord, error) {
	if attempt.Status == domain.PaymentAttemptPending {
		if err := r.Payments.UpdateStatus(ctx, attempt.ID, domain.PaymentAttemptProcessing); err != nil {
			return nil, err
		}
	}

	record := s.notifier.Compose(attempt.ReservationID, domain.NotificationPaymentAction,
		"Payment requires additional authentication",
		map[string]any{"gateway_ref": attempt.GatewayRef})
	if err := r.Notifications.Append(ctx, record); err != nil {
		return nil, err
	}
	return []*domain.NotificationRecord{record}, nil
}

func (s *PaymentSynchronizer) applyDisputed(ctx context.Context, r repository.Repos, event *GatewayEvent, attempt *domain.PaymentAttempt) ([]*domain.NotificationRecord, error) {
	// Disputes are recorded for operations review; resolution is manual.
	record := s.notifier.Compose(attempt.ReservationID, domain.NotificationPaymentDisputed,
		fmt.Sprintf("Payment %s disputed: %s", attempt.GatewayRef, event.Reason),
		map[string]any{"gateway_ref": attempt.GatewayRef, "reason": event.Reason})
	if err := r.Notifications.Append(ctx, record); err != nil {
		return nil, err
	}
	return []*domain.NotificationRecord{record}, nil
}
