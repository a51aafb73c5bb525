package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 6. PAYMENT SYNCHRONIZATION
// ──────────────────────────────────────────────

type syncEnv struct {
	reservationRepo  *MockReservationRepository
	paymentRepo      *MockPaymentRepository
	notificationRepo *MockNotificationRepository
	lockStore        *MockLockStore
	publisher        *MockNotificationPublisher
	sync             *service.PaymentSynchronizer
}

func newSyncEnv() *syncEnv {
	vehicleRepo := NewMockVehicleRepository()
	reservationRepo := NewMockReservationRepository()
	paymentRepo := NewMockPaymentRepository()
	notificationRepo := NewMockNotificationRepository()
	store := NewMockStore(vehicleRepo, reservationRepo, paymentRepo, notificationRepo)

	lockStore := NewMockLockStore()
	publisher := NewMockNotificationPublisher()
	notifier := service.NewNotificationService(publisher)

	return &syncEnv{
		reservationRepo:  reservationRepo,
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		lockStore:        lockStore,
		publisher:        publisher,
		sync:             service.NewPaymentSynchronizer(store, service.NewStateMachine(), notifier, lockStore),
	}
}

// seedPendingPayment stores a PENDING_PAYMENT reservation with one
// pending attempt referenced by "pi_1".
func (e *syncEnv) seedPendingPayment() {
	e.reservationRepo.AddReservation(&domain.Reservation{
		ID:            "res-1",
		Reference:     "RSV-TEST0001",
		VehicleID:     "veh-sedan",
		StartTime:     time.Now().Add(48 * time.Hour),
		EndTime:       time.Now().Add(52 * time.Hour),
		Status:        domain.ReservationStatusPendingPayment,
		PaymentStatus: domain.ReservationPaymentPending,
		TotalPrice:    1100,
	})
	e.paymentRepo.AddAttempt(&domain.PaymentAttempt{
		ID:            "pay-1",
		ReservationID: "res-1",
		Amount:        1100,
		Currency:      "USD",
		Status:        domain.PaymentAttemptPending,
		GatewayRef:    "pi_1",
	})
}

func succeededEvent() *service.GatewayEvent {
	return &service.GatewayEvent{ID: "evt-1", Kind: service.GatewayEventSucceeded, Reference: "pi_1"}
}

func TestPaymentSync_Succeeded_ConfirmsReservation(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	if err := env.sync.Apply(context.Background(), succeededEvent()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	res := env.reservationRepo.GetReservation("res-1")
	if res.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected status CONFIRMED, got %s", res.Status)
	}
	if res.PaymentStatus != domain.ReservationPaymentPaid {
		t.Errorf("expected payment status PAID, got %s", res.PaymentStatus)
	}
	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptCompleted {
		t.Errorf("expected attempt COMPLETED, got %s", attempt.Status)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationReservationConfirmed); got != 1 {
		t.Errorf("expected 1 confirmation record, got %d", got)
	}
}

func TestPaymentSync_DuplicateSucceeded_SingleConfirmation(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	for i := 0; i < 3; i++ {
		if err := env.sync.Apply(context.Background(), succeededEvent()); err != nil {
			t.Fatalf("delivery %d: expected no error, got: %v", i, err)
		}
	}

	res := env.reservationRepo.GetReservation("res-1")
	if res.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected status CONFIRMED, got %s", res.Status)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationReservationConfirmed); got != 1 {
		t.Errorf("expected exactly 1 confirmation record after redelivery, got %d", got)
	}
	if env.publisher.PublishedCount() != 1 {
		t.Errorf("expected exactly 1 published notification, got %d", env.publisher.PublishedCount())
	}
}

func TestPaymentSync_ConcurrentSucceeded_SingleConfirmation(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := env.sync.Apply(context.Background(), succeededEvent()); err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := env.notificationRepo.CountByKind(domain.NotificationReservationConfirmed); got != 1 {
		t.Errorf("expected exactly 1 confirmation record, got %d", got)
	}
}

func TestPaymentSync_FailedAfterSucceeded_NoOp(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	if err := env.sync.Apply(context.Background(), succeededEvent()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	failed := &service.GatewayEvent{ID: "evt-2", Kind: service.GatewayEventFailed, Reference: "pi_1", Reason: "card declined"}
	if err := env.sync.Apply(context.Background(), failed); err != nil {
		t.Fatalf("expected stale failure to be acknowledged, got: %v", err)
	}

	res := env.reservationRepo.GetReservation("res-1")
	if res.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected status to remain CONFIRMED, got %s", res.Status)
	}
	if res.PaymentStatus != domain.ReservationPaymentPaid {
		t.Errorf("expected payment status to remain PAID, got %s", res.PaymentStatus)
	}
	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptCompleted {
		t.Errorf("expected attempt to remain COMPLETED, got %s", attempt.Status)
	}
}

func TestPaymentSync_Failed_MarksPaymentOnly(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	failed := &service.GatewayEvent{ID: "evt-2", Kind: service.GatewayEventFailed, Reference: "pi_1", Reason: "card declined"}
	if err := env.sync.Apply(context.Background(), failed); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	res := env.reservationRepo.GetReservation("res-1")
	// The lifecycle stays put so a retry can still confirm.
	if res.Status != domain.ReservationStatusPendingPayment {
		t.Errorf("expected status to remain PENDING_PAYMENT, got %s", res.Status)
	}
	if res.PaymentStatus != domain.ReservationPaymentFailed {
		t.Errorf("expected payment status FAILED, got %s", res.PaymentStatus)
	}
	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptFailed {
		t.Errorf("expected attempt FAILED, got %s", attempt.Status)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationPaymentFailed); got != 1 {
		t.Errorf("expected 1 payment-failed record, got %d", got)
	}
}

func TestPaymentSync_UnknownReference_Acknowledged(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	event := &service.GatewayEvent{ID: "evt-9", Kind: service.GatewayEventSucceeded, Reference: "pi_unknown"}
	if err := env.sync.Apply(context.Background(), event); err != nil {
		t.Fatalf("expected unknown reference to be acknowledged, got: %v", err)
	}

	res := env.reservationRepo.GetReservation("res-1")
	if res.Status != domain.ReservationStatusPendingPayment {
		t.Errorf("expected no state change, got %s", res.Status)
	}
	if env.notificationRepo.CountRecords() != 0 {
		t.Error("expected no notification records")
	}
}

func TestPaymentSync_Cancelled_SettlesAttemptOnly(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	event := &service.GatewayEvent{ID: "evt-3", Kind: service.GatewayEventCancelled, Reference: "pi_1"}
	if err := env.sync.Apply(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptCancelled {
		t.Errorf("expected attempt CANCELLED, got %s", attempt.Status)
	}
	res := env.reservationRepo.GetReservation("res-1")
	if res.Status != domain.ReservationStatusPendingPayment {
		t.Errorf("expected reservation untouched, got %s", res.Status)
	}
}

func TestPaymentSync_Disputed_AuditOnly(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	event := &service.GatewayEvent{ID: "evt-4", Kind: service.GatewayEventDisputed, Reference: "pi_1", Reason: "fraud claim"}
	if err := env.sync.Apply(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptPending {
		t.Errorf("expected attempt untouched, got %s", attempt.Status)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationPaymentDisputed); got != 1 {
		t.Errorf("expected 1 dispute record, got %d", got)
	}
}

func TestPaymentSync_RequiresAction_MovesToProcessing(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	event := &service.GatewayEvent{ID: "evt-5", Kind: service.GatewayEventRequiresAction, Reference: "pi_1"}
	if err := env.sync.Apply(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptProcessing {
		t.Errorf("expected attempt PROCESSING, got %s", attempt.Status)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationPaymentAction); got != 1 {
		t.Errorf("expected 1 action-required record, got %d", got)
	}
}

func TestPaymentSync_SucceededAfterCancellation_SettlesAttemptOnly(t *testing.T) {
	t.Parallel()

	env := newSyncEnv()
	env.seedPendingPayment()

	// The reservation was cancelled while the charge was in flight.
	res := env.reservationRepo.GetReservation("res-1")
	res.Status = domain.ReservationStatusCancelled

	if err := env.sync.Apply(context.Background(), succeededEvent()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if attempt := env.paymentRepo.GetAttempt("pay-1"); attempt.Status != domain.PaymentAttemptCompleted {
		t.Errorf("expected attempt COMPLETED, got %s", attempt.Status)
	}
	stored := env.reservationRepo.GetReservation("res-1")
	if stored.Status != domain.ReservationStatusCancelled {
		t.Errorf("expected reservation to stay CANCELLED, got %s", stored.Status)
	}
	if env.notificationRepo.CountByKind(domain.NotificationReservationConfirmed) != 0 {
		t.Error("expected no confirmation record")
	}
}
