package domain

import "time"

// ReservationStatus represents the lifecycle status of a reservation.
type ReservationStatus string

const (
	ReservationStatusDraft          ReservationStatus = "DRAFT"
	ReservationStatusPendingPayment ReservationStatus = "PENDING_PAYMENT"
	ReservationStatusConfirmed      ReservationStatus = "CONFIRMED"
	ReservationStatusInProgress     ReservationStatus = "IN_PROGRESS"
	ReservationStatusCompleted      ReservationStatus = "COMPLETED"
	ReservationStatusCancelled      ReservationStatus = "CANCELLED"
	ReservationStatusRefunded       ReservationStatus = "REFUNDED"
)

// Blocks reports whether a reservation in this status occupies the
// vehicle for conflict checks. Only committed reservations block.
func (s ReservationStatus) Blocks() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusInProgress
}

// Terminal reports whether no further transitions are allowed.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationStatusCompleted || s == ReservationStatusRefunded
}

// ReservationPaymentStatus tracks payment progress on the reservation itself.
type ReservationPaymentStatus string

const (
	ReservationPaymentUnpaid   ReservationPaymentStatus = "UNPAID"
	ReservationPaymentPending  ReservationPaymentStatus = "PENDING"
	ReservationPaymentPaid     ReservationPaymentStatus = "PAID"
	ReservationPaymentFailed   ReservationPaymentStatus = "FAILED"
	ReservationPaymentRefunded ReservationPaymentStatus = "REFUNDED"
)

// Reservation represents a requested or committed allocation of a vehicle
// over a time interval [StartTime, EndTime).
type Reservation struct {
	ID             string
	Reference      string
	RequesterID    string
	VehicleID      string
	StartTime      time.Time
	EndTime        time.Time
	Passengers     int
	Status         ReservationStatus
	PaymentStatus  ReservationPaymentStatus
	BasePrice      float64
	AddOnPrice     float64
	TaxAmount      float64
	TotalPrice     float64 // always BasePrice-derived subtotal + tax, never hand-edited
	SpecialRequest string
	CancelledAt    time.Time
	CancelReason   string
	RefundAmount   float64
	CreatedAt      time.Time
}

// Overlaps reports whether the reservation interval overlaps [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// RouteStop is an ordered waypoint on a reservation, used for multi-stop
// pricing and display.
type RouteStop struct {
	ReservationID string
	OrderIndex    int
	Location      string
	Lat           float64
	Lng           float64
	EstimatedTime time.Time
}

// AddOnSelection records a chosen add-on and its computed price contribution.
type AddOnSelection struct {
	ReservationID string
	AddOnID       string
	Quantity      int
	Price         float64 // quantity x base price x modifier
}
