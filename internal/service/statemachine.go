package service

import (
	"strings"
	"time"

	"fleet/internal/domain"
)

// Actor identifies who is driving a transition. Privileged actors
// (operations staff) are exempt from the cancellation time window.
type Actor struct {
	ID         string
	Privileged bool
}

// allowedTransitions is the full reservation lifecycle. Any transition
// not listed here fails with InvalidTransitionError. COMPLETED and
// REFUNDED are terminal; CANCELLED only admits the refund bookkeeping
// transition.
var allowedTransitions = map[domain.ReservationStatus][]domain.ReservationStatus{
	domain.ReservationStatusDraft:          {domain.ReservationStatusPendingPayment},
	domain.ReservationStatusPendingPayment: {domain.ReservationStatusConfirmed, domain.ReservationStatusCancelled},
	domain.ReservationStatusConfirmed:      {domain.ReservationStatusInProgress, domain.ReservationStatusCancelled},
	domain.ReservationStatusInProgress:     {domain.ReservationStatusCompleted, domain.ReservationStatusCancelled},
	domain.ReservationStatusCancelled:      {domain.ReservationStatusRefunded},
}

// cancellationWindow is the minimum lead time a non-privileged actor
// needs to cancel.
const cancellationWindow = 24 * time.Hour

// StateMachine owns the reservation lifecycle: which transitions are
// legal, who may cancel when, and how refunds tier. It mutates
// reservations in memory only; persistence is the caller's concern.
type StateMachine struct{}

// NewStateMachine creates a new StateMachine.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CanTransition reports whether from -> to is a legal transition.
func (m *StateMachine) CanTransition(from, to domain.ReservationStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Apply moves the reservation to the target status, or fails with an
// InvalidTransitionError naming both states. Cancellations must go
// through Cancel so the policy and refund computation run.
func (m *StateMachine) Apply(res *domain.Reservation, target domain.ReservationStatus) error {
	if !m.CanTransition(res.Status, target) {
		return &InvalidTransitionError{From: res.Status, To: target}
	}
	res.Status = target
	return nil
}

// Cancel applies the cancellation policy and, when permitted, moves the
// reservation to CANCELLED with its refund amount computed from the
// tier in force at cancellation time.
//
// A reason is mandatory for every actor. Non-privileged actors may only
// cancel from PENDING_PAYMENT or CONFIRMED and only while the interval
// start is at least 24 hours away; privileged actors are exempt from
// the window and may also abort an in-progress reservation.
func (m *StateMachine) Cancel(res *domain.Reservation, actor Actor, reason string, at time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}

	if !m.CanTransition(res.Status, domain.ReservationStatusCancelled) {
		return &InvalidTransitionError{From: res.Status, To: domain.ReservationStatusCancelled}
	}

	if !actor.Privileged {
		if res.Status == domain.ReservationStatusInProgress {
			return &InvalidTransitionError{From: res.Status, To: domain.ReservationStatusCancelled}
		}
		if res.StartTime.Sub(at) < cancellationWindow {
			return ErrCancellationWindow
		}
	}

	res.Status = domain.ReservationStatusCancelled
	res.CancelledAt = at
	res.CancelReason = reason
	res.RefundAmount = round2(res.TotalPrice * refundPercent(res.StartTime.Sub(at)) / 100)
	return nil
}

// refundPercent returns the refund tier for the lead time remaining at
// cancellation. The tier is identical for privileged and non-privileged
// actors; only the eligibility window differs.
func refundPercent(untilStart time.Duration) float64 {
	switch {
	case untilStart >= 72*time.Hour:
		return 100
	case untilStart >= 48*time.Hour:
		return 75
	case untilStart >= 24*time.Hour:
		return 50
	default:
		return 0
	}
}
