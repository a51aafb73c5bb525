package service

import (
	"errors"
	"fmt"

	"fleet/internal/domain"
)

var (
	// ErrInvalidRequesterID is returned when the requester ID is empty.
	ErrInvalidRequesterID = errors.New("invalid requester id")

	// ErrInvalidVehicleID is returned when the vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidReservationID is returned when the reservation ID is empty.
	ErrInvalidReservationID = errors.New("invalid reservation id")

	// ErrInvalidInterval is returned when the interval is malformed
	// (start not strictly before end).
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")

	// ErrStartInPast is returned when the interval starts in the past.
	ErrStartInPast = errors.New("invalid interval: start is in the past")

	// ErrInvalidPassengers is returned for a non-positive passenger count.
	ErrInvalidPassengers = errors.New("passenger count must be positive")

	// ErrPassengersExceedCapacity is returned when the passenger count
	// exceeds the vehicle's rated capacity.
	ErrPassengersExceedCapacity = errors.New("passenger count exceeds vehicle capacity")

	// ErrInvalidStopOrder is returned when route stop order indexes are
	// not strictly increasing.
	ErrInvalidStopOrder = errors.New("route stop order must be strictly increasing")

	// ErrVehicleNotBookable is returned when the vehicle is inactive or
	// operationally unavailable.
	ErrVehicleNotBookable = errors.New("vehicle is not bookable")

	// ErrCapacityConflict is returned when an overlapping committed
	// reservation exists for the vehicle. The caller must retry with a
	// different interval or vehicle, never with identical parameters.
	ErrCapacityConflict = errors.New("vehicle already reserved for an overlapping interval")

	// ErrMissingTariff is returned when the tariff tier needed for the
	// quote carries no rate. Monetary computation errors are fatal;
	// partial breakdowns are never persisted.
	ErrMissingTariff = errors.New("vehicle tariff is missing a required rate")

	// ErrReasonRequired is returned when a cancellation carries no reason.
	ErrReasonRequired = errors.New("cancellation reason is required")

	// ErrCancellationWindow is returned when a non-privileged actor
	// cancels less than 24 hours before the interval start.
	ErrCancellationWindow = errors.New("cancellation window has closed for this reservation")

	// ErrNotPermitted is returned when a non-privileged actor attempts
	// an operations-only transition.
	ErrNotPermitted = errors.New("actor is not permitted to perform this transition")

	// ErrInvalidVehicle is returned for a malformed vehicle definition.
	ErrInvalidVehicle = errors.New("invalid vehicle definition")

	// ErrSignatureInvalid is returned when a gateway payload cannot be
	// verified. The event is dropped with no state change.
	ErrSignatureInvalid = errors.New("gateway event signature is invalid")

	// ErrActivePaymentExists is returned when creating a payment attempt
	// while another attempt is pending, processing or completed.
	ErrActivePaymentExists = errors.New("reservation already has an active payment attempt")
)

// InvalidTransitionError reports a state machine violation. It always
// names the attempted source and target states; it is a caller bug,
// never a recoverable condition.
type InvalidTransitionError struct {
	From domain.ReservationStatus
	To   domain.ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
