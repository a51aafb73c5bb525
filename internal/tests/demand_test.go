package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fleet/internal/domain"
	"fleet/internal/redis"
	"fleet/internal/service"
)

// ──────────────────────────────────────────────
// 2. DEMAND ESTIMATOR
// ──────────────────────────────────────────────

func demandFixture(available, active int) (*MockVehicleRepository, *MockReservationRepository, time.Time, time.Time) {
	vehicleRepo := NewMockVehicleRepository()
	for i := 0; i < available; i++ {
		v := testSedan()
		v.ID = fmt.Sprintf("veh-%d", i)
		vehicleRepo.AddVehicle(v)
	}

	start := offPeakStart
	end := start.Add(4 * time.Hour)

	reservationRepo := NewMockReservationRepository()
	for i := 0; i < active; i++ {
		reservationRepo.AddReservation(&domain.Reservation{
			ID:        fmt.Sprintf("res-%d", i),
			VehicleID: fmt.Sprintf("veh-%d", i),
			StartTime: start,
			EndTime:   end,
			Status:    domain.ReservationStatusConfirmed,
		})
	}

	return vehicleRepo, reservationRepo, start, end
}

func TestDemandMultiplier_Buckets(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		available int
		active    int
		want      float64
	}{
		{name: "no demand", available: 10, active: 0, want: 1.0},
		{name: "light demand", available: 10, active: 2, want: 1.1},
		{name: "moderate demand", available: 10, active: 4, want: 1.25},
		{name: "heavy demand", available: 10, active: 6, want: 1.5},
		{name: "saturated", available: 10, active: 8, want: 2.0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			vehicleRepo, reservationRepo, start, end := demandFixture(tc.available, tc.active)
			estimator := service.NewDemandEstimator(vehicleRepo, reservationRepo, nil)

			got := estimator.Multiplier(context.Background(), domain.VehicleCategorySedan, "downtown", start, end)
			if got != tc.want {
				t.Errorf("expected multiplier %.2f for %d/%d, got %.2f", tc.want, tc.active, tc.available, got)
			}
		})
	}
}

func TestDemandMultiplier_ZeroAvailability_ForcesMaximum(t *testing.T) {
	t.Parallel()

	vehicleRepo, reservationRepo, start, end := demandFixture(0, 0)
	estimator := service.NewDemandEstimator(vehicleRepo, reservationRepo, nil)

	got := estimator.Multiplier(context.Background(), domain.VehicleCategorySedan, "downtown", start, end)
	if got != 2.0 {
		t.Errorf("expected multiplier 2.0 with zero availability, got %.2f", got)
	}
}

func TestDemandMultiplier_StorageError_FailsOpen(t *testing.T) {
	t.Parallel()

	vehicleRepo, reservationRepo, start, end := demandFixture(10, 8)
	vehicleRepo.CountAvailableError = ErrMockTimeout

	estimator := service.NewDemandEstimator(vehicleRepo, reservationRepo, nil)

	got := estimator.Multiplier(context.Background(), domain.VehicleCategorySedan, "downtown", start, end)
	if got != 1.0 {
		t.Errorf("expected neutral multiplier 1.0 on storage error, got %.2f", got)
	}
}

func TestDemandMultiplier_UsesCachedSnapshot(t *testing.T) {
	t.Parallel()

	vehicleRepo, reservationRepo, start, end := demandFixture(10, 0)
	cache := NewMockCacheStore()

	// Seed a saturated snapshot; storage says demand is zero.
	windowStart := start.Add(-2 * time.Hour)
	if err := cache.SetDemandSnapshot(context.Background(), domain.VehicleCategorySedan, "downtown", windowStart,
		&redis.DemandSnapshot{Active: 9, Available: 10}); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}

	estimator := service.NewDemandEstimator(vehicleRepo, reservationRepo, cache)

	got := estimator.Multiplier(context.Background(), domain.VehicleCategorySedan, "downtown", start, end)
	if got != 2.0 {
		t.Errorf("expected cached snapshot to drive multiplier 2.0, got %.2f", got)
	}
}
