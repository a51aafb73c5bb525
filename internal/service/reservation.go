package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/repository"
)

// ReservationService drives the reservation lifecycle: quoting,
// transactional creation, and state transitions.
type ReservationService struct {
	store           repository.Store
	vehicleRepo     repository.VehicleRepository
	reservationRepo repository.ReservationRepository
	paymentRepo     repository.PaymentRepository
	pricing         *PricingEngine
	demand          *DemandEstimator
	conflict        *ConflictResolver
	stateMachine    *StateMachine
	gateway         PaymentGateway
	routeEstimator  RouteEstimator // optional
	notifier        *NotificationService
	cacheStore      redis.CacheStoreInterface // optional
	addOns          AddOnCatalog
}

// NewReservationService creates a new ReservationService.
func NewReservationService(
	store repository.Store,
	vehicleRepo repository.VehicleRepository,
	reservationRepo repository.ReservationRepository,
	paymentRepo repository.PaymentRepository,
	pricing *PricingEngine,
	demand *DemandEstimator,
	stateMachine *StateMachine,
	gateway PaymentGateway,
	routeEstimator RouteEstimator,
	notifier *NotificationService,
	cacheStore redis.CacheStoreInterface,
) *ReservationService {
	return &ReservationService{
		store:           store,
		vehicleRepo:     vehicleRepo,
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		pricing:         pricing,
		demand:          demand,
		conflict:        NewConflictResolver(reservationRepo),
		stateMachine:    stateMachine,
		gateway:         gateway,
		routeEstimator:  routeEstimator,
		notifier:        notifier,
		cacheStore:      cacheStore,
		addOns:          DefaultAddOnCatalog(),
	}
}

// AddOnSelectionRequest selects an add-on by catalog id.
type AddOnSelectionRequest struct {
	AddOnID  string
	Quantity int
}

// RouteStopRequest is one requested waypoint.
type RouteStopRequest struct {
	OrderIndex    int
	Location      string
	Lat           float64
	Lng           float64
	EstimatedTime time.Time
}

// CreateReservationRequest contains the parameters for creating a reservation.
type CreateReservationRequest struct {
	RequesterID    string
	VehicleID      string
	Start          time.Time
	End            time.Time
	Passengers     int
	AddOns         []AddOnSelectionRequest
	RouteStops     []RouteStopRequest
	SpecialRequest string
}

// CreateReservationResponse contains the result of creating a reservation.
type CreateReservationResponse struct {
	Reservation      *domain.Reservation
	Breakdown        *domain.PriceBreakdown
	PaymentAttempt   *domain.PaymentAttempt
	ClientSecret     string
	PaymentInitiated bool
}

// CreateReservation validates the request, prices it, and commits it.
// The authoritative conflict check and the insert run in one
// transaction under a per-vehicle lock; a conflict detected there
// aborts the whole creation with ErrCapacityConflict. After commit a
// payment intent is requested; if the gateway is unreachable the
// reservation stays in DRAFT and can be retried or deleted.
func (s *ReservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*CreateReservationResponse, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.Active || vehicle.Status != domain.VehicleStatusAvailable {
		return nil, ErrVehicleNotBookable
	}
	if req.Passengers > vehicle.Capacity {
		return nil, ErrPassengersExceedCapacity
	}

	// Advisory pre-check. May race; the transaction below is the guard.
	available, err := s.conflict.CheckBookable(ctx, req.VehicleID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrCapacityConflict
	}

	breakdown, addOnInputs, err := s.price(ctx, vehicle, quotePricingInput{
		Start:      req.Start,
		End:        req.End,
		Passengers: req.Passengers,
		AddOns:     req.AddOns,
		RouteStops: req.RouteStops,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reservation := &domain.Reservation{
		ID:             uuid.New().String(),
		Reference:      newReference(),
		RequesterID:    req.RequesterID,
		VehicleID:      req.VehicleID,
		StartTime:      req.Start,
		EndTime:        req.End,
		Passengers:     req.Passengers,
		Status:         domain.ReservationStatusDraft,
		PaymentStatus:  domain.ReservationPaymentUnpaid,
		BasePrice:      round2(breakdown.Subtotal - breakdown.AddOnPrice),
		AddOnPrice:     breakdown.AddOnPrice,
		TaxAmount:      breakdown.TaxAmount,
		TotalPrice:     breakdown.Total,
		SpecialRequest: req.SpecialRequest,
		CreatedAt:      now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Reservations.LockVehicle(ctx, req.VehicleID); err != nil {
			return err
		}

		// Authoritative conflict check, race-free under the vehicle lock.
		stillAvailable, err := NewConflictResolver(r.Reservations).CheckBookable(ctx, req.VehicleID, req.Start, req.End)
		if err != nil {
			return err
		}
		if !stillAvailable {
			return ErrCapacityConflict
		}

		if err := r.Reservations.Create(ctx, reservation); err != nil {
			return err
		}
		if err := r.Reservations.AddRouteStops(ctx, routeStops(reservation.ID, req.RouteStops)); err != nil {
			return err
		}
		return r.Reservations.AddAddOnSelections(ctx, addOnSelections(reservation.ID, addOnInputs))
	})
	if err != nil {
		return nil, err
	}

	resp := &CreateReservationResponse{
		Reservation: reservation,
		Breakdown:   breakdown,
	}

	// Request the payment intent outside the commit transaction. A
	// gateway failure leaves the reservation in DRAFT for retry.
	attempt, secret, err := s.initiatePayment(ctx, reservation)
	if err != nil {
		log.Printf("reservation %s: payment intent failed: %v", reservation.Reference, err)
		return resp, nil
	}

	resp.PaymentAttempt = attempt
	resp.ClientSecret = secret
	resp.PaymentInitiated = true
	return resp, nil
}

// initiatePayment creates the gateway intent, records the payment
// attempt, and moves the reservation from DRAFT to PENDING_PAYMENT.
func (s *ReservationService) initiatePayment(ctx context.Context, reservation *domain.Reservation) (*domain.PaymentAttempt, string, error) {
	intent, err := s.gateway.CreateIntent(ctx, reservation.TotalPrice, s.pricing.cfg.Currency, map[string]string{
		"reservation_id": reservation.ID,
		"reference":      reservation.Reference,
	})
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	attempt := &domain.PaymentAttempt{
		ID:            uuid.New().String(),
		ReservationID: reservation.ID,
		Amount:        reservation.TotalPrice,
		Currency:      s.pricing.cfg.Currency,
		Status:        domain.PaymentAttemptPending,
		GatewayRef:    intent.ID,
		Metadata:      map[string]string{"reference": reservation.Reference},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var record *domain.NotificationRecord
	err = s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		existing, err := r.Payments.GetActiveByReservationID(ctx, reservation.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrActivePaymentExists
		}
		if err := r.Payments.Create(ctx, attempt); err != nil {
			return err
		}

		from := reservation.Status
		if err := s.stateMachine.Apply(reservation, domain.ReservationStatusPendingPayment); err != nil {
			return err
		}
		reservation.PaymentStatus = domain.ReservationPaymentPending
		if err := r.Reservations.Update(ctx, reservation); err != nil {
			return err
		}

		record = s.notifier.ComposeTransition(reservation, from, domain.NotificationReservationCreated,
			fmt.Sprintf("Reservation %s created, awaiting payment of %.2f", reservation.Reference, reservation.TotalPrice))
		return r.Notifications.Append(ctx, record)
	})
	if err != nil {
		return nil, "", err
	}

	s.notifier.Publish(ctx, record)
	return attempt, intent.ClientSecret, nil
}

// QuoteRequest contains the parameters for pricing an interval without
// committing anything.
type QuoteRequest struct {
	VehicleID  string
	Start      time.Time
	End        time.Time
	Passengers int
	AddOns     []AddOnSelectionRequest
	RouteStops []RouteStopRequest
	Estimate   *domain.RouteEstimate // optional caller-supplied estimate
}

// Quote computes a price breakdown. Identical inputs always produce an
// identical breakdown; nothing is persisted.
func (s *ReservationService) Quote(ctx context.Context, req QuoteRequest) (*domain.PriceBreakdown, error) {
	if err := validateInterval(req.Start, req.End); err != nil {
		return nil, err
	}
	if req.Passengers <= 0 {
		return nil, ErrInvalidPassengers
	}
	if err := validateStopOrder(req.RouteStops); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	breakdown, _, err := s.price(ctx, vehicle, quotePricingInput{
		Start:      req.Start,
		End:        req.End,
		Passengers: req.Passengers,
		AddOns:     req.AddOns,
		RouteStops: req.RouteStops,
		Estimate:   req.Estimate,
	})
	return breakdown, err
}

type quotePricingInput struct {
	Start      time.Time
	End        time.Time
	Passengers int
	AddOns     []AddOnSelectionRequest
	RouteStops []RouteStopRequest
	Estimate   *domain.RouteEstimate
}

// price assembles the pricing-engine input: resolved add-ons, the
// demand multiplier, and the optional route estimate.
func (s *ReservationService) price(ctx context.Context, vehicle *domain.Vehicle, in quotePricingInput) (*domain.PriceBreakdown, []AddOnInput, error) {
	addOnInputs := make([]AddOnInput, 0, len(in.AddOns))
	for _, sel := range in.AddOns {
		if sel.Quantity <= 0 {
			return nil, nil, fmt.Errorf("add-on %q: quantity must be positive", sel.AddOnID)
		}
		input, ok := s.addOns.Resolve(sel.AddOnID, sel.Quantity)
		if !ok {
			return nil, nil, fmt.Errorf("unknown add-on %q", sel.AddOnID)
		}
		addOnInputs = append(addOnInputs, input)
	}

	estimate := in.Estimate
	if estimate == nil && s.routeEstimator != nil && len(in.RouteStops) >= 2 {
		waypoints := make([]Waypoint, len(in.RouteStops))
		for i, stop := range in.RouteStops {
			waypoints[i] = Waypoint{Lat: stop.Lat, Lng: stop.Lng}
		}
		est, err := s.routeEstimator.Estimate(ctx, waypoints[0], waypoints[len(waypoints)-1], waypoints[1:len(waypoints)-1])
		if err != nil {
			// Routing is optional; fall back to tariff-only pricing.
			log.Printf("route estimate unavailable: %v", err)
		} else {
			estimate = est
		}
	}

	multiplier := s.demand.Multiplier(ctx, vehicle.Category, vehicle.Location, in.Start, in.End)

	breakdown, err := s.pricing.Quote(QuoteInput{
		Vehicle:          vehicle,
		Start:            in.Start,
		End:              in.End,
		Passengers:       in.Passengers,
		AddOns:           addOnInputs,
		StopCount:        len(in.RouteStops),
		Route:            estimate,
		DemandMultiplier: multiplier,
	})
	if err != nil {
		return nil, nil, err
	}
	return breakdown, addOnInputs, nil
}

// TransitionRequest asks for a lifecycle transition on a reservation.
type TransitionRequest struct {
	ReservationID string
	Target        domain.ReservationStatus
	Reason        string
	Actor         Actor
}

// Transition atomically applies a lifecycle transition. Cancellations
// run the cancellation policy (eligibility window, mandatory reason,
// refund tier); all other targets are operations-only.
func (s *ReservationService) Transition(ctx context.Context, req TransitionRequest) (*domain.Reservation, error) {
	if req.ReservationID == "" {
		return nil, ErrInvalidReservationID
	}

	var reservation *domain.Reservation
	var record *domain.NotificationRecord

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		res, err := r.Reservations.GetByID(ctx, req.ReservationID)
		if err != nil {
			return err
		}
		from := res.Status

		if req.Target == domain.ReservationStatusCancelled {
			if err := s.stateMachine.Cancel(res, req.Actor, req.Reason, time.Now()); err != nil {
				return err
			}
		} else {
			if !req.Actor.Privileged {
				return ErrNotPermitted
			}
			if err := s.stateMachine.Apply(res, req.Target); err != nil {
				return err
			}
			if req.Target == domain.ReservationStatusRefunded {
				res.PaymentStatus = domain.ReservationPaymentRefunded
			}
		}

		if err := r.Reservations.Update(ctx, res); err != nil {
			return err
		}

		record = s.notifier.ComposeTransition(res, from, transitionKind(res.Status), transitionMessage(res, from))
		if err := r.Notifications.Append(ctx, record); err != nil {
			return err
		}

		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, record)
	return reservation, nil
}

// GetReservation retrieves a reservation by ID.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	if id == "" {
		return nil, ErrInvalidReservationID
	}
	return s.reservationRepo.GetByID(ctx, id)
}

// ListReservations retrieves recent reservations.
func (s *ReservationService) ListReservations(ctx context.Context) ([]*domain.Reservation, error) {
	return s.reservationRepo.GetAll(ctx)
}

// DeleteDraft removes a reservation that never left DRAFT. Committed
// reservations are cancelled, never deleted.
func (s *ReservationService) DeleteDraft(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidReservationID
	}
	return s.reservationRepo.DeleteDraft(ctx, id)
}

// vehicleByID reads a vehicle through the cache when one is configured.
func (s *ReservationService) vehicleByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	if id == "" {
		return nil, ErrInvalidVehicleID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetVehicle(ctx, id)
		if err != nil {
			log.Printf("vehicle cache read: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetVehicle(ctx, vehicle); err != nil {
			log.Printf("vehicle cache write: %v", err)
		}
	}
	return vehicle, nil
}

func (s *ReservationService) validateCreateRequest(req CreateReservationRequest) error {
	if req.RequesterID == "" {
		return ErrInvalidRequesterID
	}
	if req.VehicleID == "" {
		return ErrInvalidVehicleID
	}
	if err := validateInterval(req.Start, req.End); err != nil {
		return err
	}
	if req.Passengers <= 0 {
		return ErrInvalidPassengers
	}
	return validateStopOrder(req.RouteStops)
}

func validateInterval(start, end time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}
	if start.Before(time.Now()) {
		return ErrStartInPast
	}
	return nil
}

func validateStopOrder(stops []RouteStopRequest) error {
	for i := 1; i < len(stops); i++ {
		if stops[i].OrderIndex <= stops[i-1].OrderIndex {
			return ErrInvalidStopOrder
		}
	}
	return nil
}

func routeStops(reservationID string, stops []RouteStopRequest) []domain.RouteStop {
	out := make([]domain.RouteStop, len(stops))
	for i, stop := range stops {
		out[i] = domain.RouteStop{
			ReservationID: reservationID,
			OrderIndex:    stop.OrderIndex,
			Location:      stop.Location,
			Lat:           stop.Lat,
			Lng:           stop.Lng,
			EstimatedTime: stop.EstimatedTime,
		}
	}
	return out
}

func addOnSelections(reservationID string, inputs []AddOnInput) []domain.AddOnSelection {
	out := make([]domain.AddOnSelection, len(inputs))
	for i, in := range inputs {
		out[i] = domain.AddOnSelection{
			ReservationID: reservationID,
			AddOnID:       in.AddOn.ID,
			Quantity:      in.Quantity,
			Price:         round2(in.AddOn.BasePrice * (in.AddOn.ModifierPercent / 100) * float64(in.Quantity)),
		}
	}
	return out
}

func transitionKind(status domain.ReservationStatus) domain.NotificationKind {
	switch status {
	case domain.ReservationStatusConfirmed:
		return domain.NotificationReservationConfirmed
	case domain.ReservationStatusInProgress:
		return domain.NotificationReservationStarted
	case domain.ReservationStatusCompleted:
		return domain.NotificationReservationCompleted
	case domain.ReservationStatusCancelled:
		return domain.NotificationReservationCancelled
	case domain.ReservationStatusRefunded:
		return domain.NotificationReservationRefunded
	default:
		return domain.NotificationReservationCreated
	}
}

func transitionMessage(res *domain.Reservation, from domain.ReservationStatus) string {
	if res.Status == domain.ReservationStatusCancelled {
		return fmt.Sprintf("Reservation %s cancelled (refund %.2f)", res.Reference, res.RefundAmount)
	}
	return fmt.Sprintf("Reservation %s moved from %s to %s", res.Reference, from, res.Status)
}

// newReference builds a short human-readable reservation reference.
func newReference() string {
	return "RSV-" + strings.ToUpper(uuid.New().String()[:8])
}
