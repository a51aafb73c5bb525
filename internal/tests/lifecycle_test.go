package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 4. LIFECYCLE STATE MACHINE AND CANCELLATION
// ──────────────────────────────────────────────

func TestStateMachine_TransitionTable(t *testing.T) {
	t.Parallel()

	machine := service.NewStateMachine()

	testCases := []struct {
		from    domain.ReservationStatus
		to      domain.ReservationStatus
		allowed bool
	}{
		{domain.ReservationStatusDraft, domain.ReservationStatusPendingPayment, true},
		{domain.ReservationStatusPendingPayment, domain.ReservationStatusConfirmed, true},
		{domain.ReservationStatusPendingPayment, domain.ReservationStatusCancelled, true},
		{domain.ReservationStatusConfirmed, domain.ReservationStatusInProgress, true},
		{domain.ReservationStatusConfirmed, domain.ReservationStatusCancelled, true},
		{domain.ReservationStatusInProgress, domain.ReservationStatusCompleted, true},
		{domain.ReservationStatusCancelled, domain.ReservationStatusRefunded, true},

		{domain.ReservationStatusDraft, domain.ReservationStatusConfirmed, false},
		{domain.ReservationStatusCompleted, domain.ReservationStatusCancelled, false},
		{domain.ReservationStatusCompleted, domain.ReservationStatusInProgress, false},
		{domain.ReservationStatusRefunded, domain.ReservationStatusConfirmed, false},
		{domain.ReservationStatusCancelled, domain.ReservationStatusConfirmed, false},
		{domain.ReservationStatusConfirmed, domain.ReservationStatusDraft, false},
	}

	for _, tc := range testCases {
		if got := machine.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStateMachine_InvalidTransition_NamesStates(t *testing.T) {
	t.Parallel()

	machine := service.NewStateMachine()
	res := &domain.Reservation{Status: domain.ReservationStatusCompleted}

	err := machine.Apply(res, domain.ReservationStatusCancelled)
	if !service.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got: %v", err)
	}
	if res.Status != domain.ReservationStatusCompleted {
		t.Errorf("expected status unchanged, got %s", res.Status)
	}

	var ite *service.InvalidTransitionError
	errors.As(err, &ite)
	if ite.From != domain.ReservationStatusCompleted || ite.To != domain.ReservationStatusCancelled {
		t.Errorf("expected error to name COMPLETED -> CANCELLED, got %s -> %s", ite.From, ite.To)
	}
}

func TestCancel_RefundTiers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		untilStart time.Duration
		wantRefund float64
	}{
		{name: "72 hours before start", untilStart: 72 * time.Hour, wantRefund: 1000},
		{name: "48 hours before start", untilStart: 48 * time.Hour, wantRefund: 750},
		{name: "24 hours before start", untilStart: 24 * time.Hour, wantRefund: 500},
		{name: "71 hours falls to next tier", untilStart: 71 * time.Hour, wantRefund: 750},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			machine := service.NewStateMachine()
			res := &domain.Reservation{
				Status:     domain.ReservationStatusConfirmed,
				StartTime:  now.Add(tc.untilStart),
				TotalPrice: 1000,
			}

			err := machine.Cancel(res, service.Actor{ID: "user-1"}, "change of plans", now)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if res.RefundAmount != tc.wantRefund {
				t.Errorf("expected refund %.2f, got %.2f", tc.wantRefund, res.RefundAmount)
			}
			if res.Status != domain.ReservationStatusCancelled {
				t.Errorf("expected status CANCELLED, got %s", res.Status)
			}
			if res.CancelReason == "" || res.CancelledAt.IsZero() {
				t.Error("expected cancellation metadata to be recorded")
			}
		})
	}
}

func TestCancel_InsideWindow_NonPrivilegedRejected(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	machine := service.NewStateMachine()

	res := &domain.Reservation{
		Status:     domain.ReservationStatusConfirmed,
		StartTime:  now.Add(23*time.Hour + 59*time.Minute),
		TotalPrice: 1000,
	}

	err := machine.Cancel(res, service.Actor{ID: "user-1"}, "too late", now)
	if !errors.Is(err, service.ErrCancellationWindow) {
		t.Fatalf("expected ErrCancellationWindow, got: %v", err)
	}
	if res.Status != domain.ReservationStatusConfirmed {
		t.Errorf("expected status unchanged, got %s", res.Status)
	}

	// A privileged actor may cancel inside the window, but the refund
	// tier still yields zero.
	err = machine.Cancel(res, service.Actor{ID: "ops-1", Privileged: true}, "operational abort", now)
	if err != nil {
		t.Fatalf("expected privileged cancellation to succeed, got: %v", err)
	}
	if res.RefundAmount != 0 {
		t.Errorf("expected refund 0 inside 24h, got %.2f", res.RefundAmount)
	}
}

func TestCancel_ReasonRequired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	machine := service.NewStateMachine()

	res := &domain.Reservation{
		Status:    domain.ReservationStatusConfirmed,
		StartTime: now.Add(100 * time.Hour),
	}

	for _, reason := range []string{"", "   "} {
		err := machine.Cancel(res, service.Actor{ID: "ops-1", Privileged: true}, reason, now)
		if !errors.Is(err, service.ErrReasonRequired) {
			t.Errorf("expected ErrReasonRequired for reason %q, got: %v", reason, err)
		}
	}
}

func TestCancel_InProgress_PrivilegedOnly(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	machine := service.NewStateMachine()

	res := &domain.Reservation{
		Status:    domain.ReservationStatusInProgress,
		StartTime: now.Add(-time.Hour),
	}

	if err := machine.Cancel(res, service.Actor{ID: "user-1"}, "abort", now); !service.IsInvalidTransition(err) {
		t.Errorf("expected InvalidTransitionError for non-privileged in-progress cancel, got: %v", err)
	}

	if err := machine.Cancel(res, service.Actor{ID: "ops-1", Privileged: true}, "vehicle breakdown", now); err != nil {
		t.Errorf("expected privileged in-progress cancel to succeed, got: %v", err)
	}
}

// ──────────────────────────────────────────────
// 5. TRANSITION SERVICE OPERATION
// ──────────────────────────────────────────────

func seedReservation(env *creationEnv, status domain.ReservationStatus, startIn time.Duration) *domain.Reservation {
	res := &domain.Reservation{
		ID:          "res-1",
		Reference:   "RSV-TEST0001",
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		StartTime:   time.Now().Add(startIn),
		EndTime:     time.Now().Add(startIn + 4*time.Hour),
		Passengers:  2,
		Status:      status,
		TotalPrice:  1100,
		CreatedAt:   time.Now(),
	}
	env.reservationRepo.AddReservation(res)
	return res
}

func TestTransition_CancelCompleted_FailsUnchanged(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	seedReservation(env, domain.ReservationStatusCompleted, -48*time.Hour)

	_, err := env.svc.Transition(context.Background(), service.TransitionRequest{
		ReservationID: "res-1",
		Target:        domain.ReservationStatusCancelled,
		Reason:        "never mind",
		Actor:         service.Actor{ID: "ops-1", Privileged: true},
	})
	if !service.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got: %v", err)
	}

	stored := env.reservationRepo.GetReservation("res-1")
	if stored.Status != domain.ReservationStatusCompleted {
		t.Errorf("expected status unchanged, got %s", stored.Status)
	}
	if env.notificationRepo.CountRecords() != 0 {
		t.Error("expected no notification record for a failed transition")
	}
}

func TestTransition_Cancel_EmitsOneRecordWithRefund(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	seedReservation(env, domain.ReservationStatusConfirmed, 100*time.Hour)

	res, err := env.svc.Transition(context.Background(), service.TransitionRequest{
		ReservationID: "res-1",
		Target:        domain.ReservationStatusCancelled,
		Reason:        "trip cancelled",
		Actor:         service.Actor{ID: "user-1"},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if res.RefundAmount != 1100 { // 100h out earns the full refund
		t.Errorf("expected refund 1100, got %.2f", res.RefundAmount)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationReservationCancelled); got != 1 {
		t.Errorf("expected 1 cancellation record, got %d", got)
	}
}

func TestTransition_OperationalSteps_RequirePrivilege(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	seedReservation(env, domain.ReservationStatusConfirmed, time.Hour)

	_, err := env.svc.Transition(context.Background(), service.TransitionRequest{
		ReservationID: "res-1",
		Target:        domain.ReservationStatusInProgress,
		Actor:         service.Actor{ID: "user-1"},
	})
	if !errors.Is(err, service.ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got: %v", err)
	}

	res, err := env.svc.Transition(context.Background(), service.TransitionRequest{
		ReservationID: "res-1",
		Target:        domain.ReservationStatusInProgress,
		Actor:         service.Actor{ID: "ops-1", Privileged: true},
	})
	if err != nil {
		t.Fatalf("expected privileged transition to succeed, got: %v", err)
	}
	if res.Status != domain.ReservationStatusInProgress {
		t.Errorf("expected status IN_PROGRESS, got %s", res.Status)
	}
}

func TestTransition_Refunded_UpdatesPaymentStatus(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	res := seedReservation(env, domain.ReservationStatusCancelled, 48*time.Hour)
	res.PaymentStatus = domain.ReservationPaymentPaid
	res.CancelledAt = time.Now()
	res.CancelReason = "customer request"

	updated, err := env.svc.Transition(context.Background(), service.TransitionRequest{
		ReservationID: "res-1",
		Target:        domain.ReservationStatusRefunded,
		Actor:         service.Actor{ID: "ops-1", Privileged: true},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if updated.Status != domain.ReservationStatusRefunded {
		t.Errorf("expected status REFUNDED, got %s", updated.Status)
	}
	if updated.PaymentStatus != domain.ReservationPaymentRefunded {
		t.Errorf("expected payment status REFUNDED, got %s", updated.PaymentStatus)
	}
}

func TestDeleteDraft_CommittedReservation_Rejected(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	seedReservation(env, domain.ReservationStatusConfirmed, 48*time.Hour)

	err := env.svc.DeleteDraft(context.Background(), "res-1")
	if err == nil {
		t.Fatal("expected error deleting a committed reservation")
	}
	if env.reservationRepo.CountReservations() != 1 {
		t.Error("expected reservation to remain")
	}
}
