package tests

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 3. RESERVATION CREATION
// ──────────────────────────────────────────────

type creationEnv struct {
	vehicleRepo      *MockVehicleRepository
	reservationRepo  *MockReservationRepository
	paymentRepo      *MockPaymentRepository
	notificationRepo *MockNotificationRepository
	store            *MockStore
	gateway          *MockPaymentGateway
	publisher        *MockNotificationPublisher
	svc              *service.ReservationService
}

func newCreationEnv() *creationEnv {
	vehicleRepo := NewMockVehicleRepository()
	vehicleRepo.AddVehicle(testSedan())

	reservationRepo := NewMockReservationRepository()
	reservationRepo.Vehicles = vehicleRepo

	paymentRepo := NewMockPaymentRepository()
	notificationRepo := NewMockNotificationRepository()
	store := NewMockStore(vehicleRepo, reservationRepo, paymentRepo, notificationRepo)

	gateway := NewMockPaymentGateway()
	publisher := NewMockNotificationPublisher()
	notifier := service.NewNotificationService(publisher)

	svc := service.NewReservationService(
		store, vehicleRepo, reservationRepo, paymentRepo,
		service.NewPricingEngine(service.DefaultPricingConfig()),
		service.NewDemandEstimator(vehicleRepo, reservationRepo, nil),
		service.NewStateMachine(),
		gateway,
		service.NewHaversineEstimator(),
		notifier,
		nil,
	)

	return &creationEnv{
		vehicleRepo:      vehicleRepo,
		reservationRepo:  reservationRepo,
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		store:            store,
		gateway:          gateway,
		publisher:        publisher,
		svc:              svc,
	}
}

func futureInterval(offset, length time.Duration) (time.Time, time.Time) {
	start := time.Now().Add(72 * time.Hour).Add(offset).Truncate(time.Minute)
	return start, start.Add(length)
}

func TestReservationCreation_ValidInput_Succeeds(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	start, end := futureInterval(0, 4*time.Hour)

	resp, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if resp.Reservation.Status != domain.ReservationStatusPendingPayment {
		t.Errorf("expected status PENDING_PAYMENT, got %s", resp.Reservation.Status)
	}
	if resp.Reservation.PaymentStatus != domain.ReservationPaymentPending {
		t.Errorf("expected payment status PENDING, got %s", resp.Reservation.PaymentStatus)
	}
	if resp.Reservation.Reference == "" {
		t.Error("expected reference to be set")
	}
	if !resp.PaymentInitiated || resp.PaymentAttempt == nil {
		t.Fatal("expected payment attempt to be initiated")
	}
	if resp.PaymentAttempt.Amount != resp.Reservation.TotalPrice {
		t.Errorf("expected attempt amount %.2f, got %.2f", resp.Reservation.TotalPrice, resp.PaymentAttempt.Amount)
	}
	if got := env.notificationRepo.CountByKind(domain.NotificationReservationCreated); got != 1 {
		t.Errorf("expected 1 creation record, got %d", got)
	}
	if env.publisher.PublishedCount() != 1 {
		t.Errorf("expected 1 published notification, got %d", env.publisher.PublishedCount())
	}
}

func TestReservationCreation_Validation_Fails(t *testing.T) {
	t.Parallel()

	start, end := futureInterval(0, 4*time.Hour)

	testCases := []struct {
		name    string
		req     service.CreateReservationRequest
		wantErr error
	}{
		{
			name:    "missing requester",
			req:     service.CreateReservationRequest{VehicleID: "veh-sedan", Start: start, End: end, Passengers: 2},
			wantErr: service.ErrInvalidRequesterID,
		},
		{
			name:    "missing vehicle",
			req:     service.CreateReservationRequest{RequesterID: "user-1", Start: start, End: end, Passengers: 2},
			wantErr: service.ErrInvalidVehicleID,
		},
		{
			name:    "start after end",
			req:     service.CreateReservationRequest{RequesterID: "user-1", VehicleID: "veh-sedan", Start: end, End: start, Passengers: 2},
			wantErr: service.ErrInvalidInterval,
		},
		{
			name: "start in the past",
			req: service.CreateReservationRequest{
				RequesterID: "user-1", VehicleID: "veh-sedan",
				Start: time.Now().Add(-2 * time.Hour), End: time.Now().Add(2 * time.Hour), Passengers: 2,
			},
			wantErr: service.ErrStartInPast,
		},
		{
			name:    "zero passengers",
			req:     service.CreateReservationRequest{RequesterID: "user-1", VehicleID: "veh-sedan", Start: start, End: end},
			wantErr: service.ErrInvalidPassengers,
		},
		{
			name: "passengers exceed capacity",
			req: service.CreateReservationRequest{
				RequesterID: "user-1", VehicleID: "veh-sedan", Start: start, End: end, Passengers: 9,
			},
			wantErr: service.ErrPassengersExceedCapacity,
		},
		{
			name: "stop order not increasing",
			req: service.CreateReservationRequest{
				RequesterID: "user-1", VehicleID: "veh-sedan", Start: start, End: end, Passengers: 2,
				RouteStops: []service.RouteStopRequest{
					{OrderIndex: 2, Location: "a"},
					{OrderIndex: 1, Location: "b"},
				},
			},
			wantErr: service.ErrInvalidStopOrder,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newCreationEnv()
			_, err := env.svc.CreateReservation(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got: %v", tc.wantErr, err)
			}
			if env.reservationRepo.CountReservations() != 0 {
				t.Error("expected nothing persisted on validation failure")
			}
		})
	}
}

func TestReservationCreation_UnavailableVehicle_Fails(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	env.vehicleRepo.UpdateStatus(context.Background(), "veh-sedan", domain.VehicleStatusUnavailable)

	start, end := futureInterval(0, 4*time.Hour)
	_, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
	})
	if !errors.Is(err, service.ErrVehicleNotBookable) {
		t.Errorf("expected ErrVehicleNotBookable, got: %v", err)
	}
}

func TestReservationCreation_OverlappingConfirmed_Fails(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	start, end := futureInterval(0, 4*time.Hour)

	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:        "res-existing",
		VehicleID: "veh-sedan",
		StartTime: start.Add(-time.Hour),
		EndTime:   start.Add(time.Hour),
		Status:    domain.ReservationStatusConfirmed,
	})

	_, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
	})
	if !errors.Is(err, service.ErrCapacityConflict) {
		t.Errorf("expected ErrCapacityConflict, got: %v", err)
	}
}

func TestReservationCreation_AdjacentIntervals_Succeed(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	start, end := futureInterval(0, 4*time.Hour)

	// [start-4h, start) touches but does not overlap [start, end).
	env.reservationRepo.AddReservation(&domain.Reservation{
		ID:        "res-before",
		VehicleID: "veh-sedan",
		StartTime: start.Add(-4 * time.Hour),
		EndTime:   start,
		Status:    domain.ReservationStatusConfirmed,
	})

	_, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
	})
	if err != nil {
		t.Fatalf("expected adjacent interval to succeed, got: %v", err)
	}
}

func TestReservationCreation_Concurrent_OneWinner(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	start, end := futureInterval(0, 4*time.Hour)

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
				RequesterID: "user-1",
				VehicleID:   "veh-sedan",
				Start:       start,
				End:         end,
				Passengers:  2,
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrCapacityConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 || conflicts != 1 {
		t.Errorf("expected exactly one winner and one conflict, got %d successes, %d conflicts", successes, conflicts)
	}
}

func TestReservationCreation_RandomizedConcurrent_NeverOverlaps(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	rng := rand.New(rand.NewSource(42))

	type attempt struct {
		start time.Time
		end   time.Time
	}

	attempts := make([]attempt, 40)
	for i := range attempts {
		offset := time.Duration(rng.Intn(96)) * time.Hour
		length := time.Duration(1+rng.Intn(12)) * time.Hour
		start, end := futureInterval(offset, length)
		attempts[i] = attempt{start: start, end: end}
	}

	var wg sync.WaitGroup
	for _, a := range attempts {
		a := a
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
				RequesterID: "user-1",
				VehicleID:   "veh-sedan",
				Start:       a.start,
				End:         a.end,
				Passengers:  2,
			})
			if err != nil && !errors.Is(err, service.ErrCapacityConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Core safety invariant: committed or in-flight reservations on one
	// vehicle never overlap.
	granted, err := env.reservationRepo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("listing reservations: %v", err)
	}
	for i := 0; i < len(granted); i++ {
		for j := i + 1; j < len(granted); j++ {
			a, b := granted[i], granted[j]
			if a.Overlaps(b.StartTime, b.EndTime) {
				t.Errorf("granted reservations overlap: [%v, %v) and [%v, %v)",
					a.StartTime, a.EndTime, b.StartTime, b.EndTime)
			}
		}
	}
}

func TestReservationCreation_GatewayFailure_LeavesDraft(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	env.gateway.CreateIntentError = ErrMockTimeout

	start, end := futureInterval(0, 4*time.Hour)
	resp, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
	})
	if err != nil {
		t.Fatalf("expected creation to survive gateway failure, got: %v", err)
	}

	if resp.PaymentInitiated {
		t.Error("expected payment not to be initiated")
	}
	stored := env.reservationRepo.GetReservation(resp.Reservation.ID)
	if stored == nil || stored.Status != domain.ReservationStatusDraft {
		t.Errorf("expected reservation to stay DRAFT, got %+v", stored)
	}
	if env.paymentRepo.CountAttempts() != 0 {
		t.Errorf("expected no payment attempts, got %d", env.paymentRepo.CountAttempts())
	}

	// A draft left behind by a gateway failure can be removed.
	if err := env.svc.DeleteDraft(context.Background(), resp.Reservation.ID); err != nil {
		t.Fatalf("expected draft deletion to succeed, got: %v", err)
	}
	if env.reservationRepo.CountReservations() != 0 {
		t.Error("expected draft to be deleted")
	}
}

func TestReservationCreation_StopsAndAddOnsPersisted(t *testing.T) {
	t.Parallel()

	env := newCreationEnv()
	start, end := futureInterval(0, 6*time.Hour)

	resp, err := env.svc.CreateReservation(context.Background(), service.CreateReservationRequest{
		RequesterID: "user-1",
		VehicleID:   "veh-sedan",
		Start:       start,
		End:         end,
		Passengers:  2,
		AddOns: []service.AddOnSelectionRequest{
			{AddOnID: "wifi", Quantity: 1},
		},
		RouteStops: []service.RouteStopRequest{
			{OrderIndex: 1, Location: "airport", Lat: 12.97, Lng: 77.59},
			{OrderIndex: 2, Location: "hotel", Lat: 12.29, Lng: 76.63},
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	stops, _ := env.reservationRepo.RouteStops(context.Background(), resp.Reservation.ID)
	if len(stops) != 2 {
		t.Errorf("expected 2 route stops, got %d", len(stops))
	}
	selections, _ := env.reservationRepo.AddOnSelections(context.Background(), resp.Reservation.ID)
	if len(selections) != 1 {
		t.Errorf("expected 1 add-on selection, got %d", len(selections))
	}
	if resp.Breakdown.AddOnPrice != 10 {
		t.Errorf("expected add-on price 10, got %.2f", resp.Breakdown.AddOnPrice)
	}
}
