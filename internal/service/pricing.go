package service

import (
	"math"
	"time"

	"fleet/internal/domain"
)

// PricingConfig contains the tuning values for the pricing engine.
// Thresholds and rates here are product configuration, not algorithmic
// constants.
type PricingConfig struct {
	TaxPercent                float64
	PeakMultiplier            float64
	PeakMorningStartHour      int
	PeakMorningEndHour        int
	PeakEveningStartHour      int
	PeakEveningEndHour        int
	OccupancyThresholdPercent float64 // share of capacity above which the surcharge applies
	OccupancySurchargePercent float64
	Currency                  string
}

// DefaultPricingConfig returns the default pricing configuration.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		TaxPercent:                10.0,
		PeakMultiplier:            1.2,
		PeakMorningStartHour:      7,
		PeakMorningEndHour:        10,
		PeakEveningStartHour:      17,
		PeakEveningEndHour:        20,
		OccupancyThresholdPercent: 50.0,
		OccupancySurchargePercent: 10.0,
		Currency:                  "USD",
	}
}

// PricingEngine computes price breakdowns. It is a pure calculator: no
// storage access, no side effects, safe for unrestricted parallel use.
type PricingEngine struct {
	cfg PricingConfig
}

// NewPricingEngine creates a new PricingEngine.
func NewPricingEngine(cfg PricingConfig) *PricingEngine {
	return &PricingEngine{cfg: cfg}
}

// AddOnInput pairs an add-on with the requested quantity.
type AddOnInput struct {
	AddOn    domain.AddOn
	Quantity int
}

// QuoteInput contains everything the engine needs to price an interval.
type QuoteInput struct {
	Vehicle          *domain.Vehicle
	Start            time.Time
	End              time.Time
	Passengers       int
	AddOns           []AddOnInput
	StopCount        int
	Route            *domain.RouteEstimate // optional; nil degrades to tariff-only
	DemandMultiplier float64               // <=0 treated as 1.0
}

// Quote computes the full price breakdown for the input. Every term is
// rounded to two decimals once, at the end of its own step.
func (e *PricingEngine) Quote(in QuoteInput) (*domain.PriceBreakdown, error) {
	if in.Vehicle == nil {
		return nil, ErrInvalidVehicleID
	}
	if !in.Start.Before(in.End) {
		return nil, ErrInvalidInterval
	}

	b := &domain.PriceBreakdown{Currency: e.cfg.Currency}

	// Step 1: tariff tier by ceiling-rounded duration.
	tariffPrice, err := tariffPrice(in.Vehicle.Tariff, in.End.Sub(in.Start))
	if err != nil {
		return nil, err
	}
	b.TariffPrice = round2(tariffPrice)
	b.BasePrice = b.TariffPrice

	// Step 2: distance/time figure, floored at the class minimum fare.
	// The higher of the two estimates wins as the base, never both.
	if in.Route != nil {
		km := in.Route.DistanceMeters / 1000
		minutes := in.Route.DurationSeconds / 60
		distance := km*in.Vehicle.Tariff.PerKmRate + minutes*in.Vehicle.Tariff.PerMinuteRate
		if distance < in.Vehicle.Tariff.MinimumFare {
			distance = in.Vehicle.Tariff.MinimumFare
		}
		b.DistancePrice = round2(distance)
		if b.DistancePrice > b.BasePrice {
			b.BasePrice = b.DistancePrice
		}
	}

	// Step 3: demand adjustment as its own line. The multiplier never
	// compounds into the base.
	multiplier := in.DemandMultiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}
	b.DemandMultiplier = multiplier
	b.DemandSurcharge = round2(b.BasePrice * (multiplier - 1))

	// Step 4: occupancy surcharge for high-capacity classes.
	if in.Vehicle.HighCapacity() && in.Vehicle.Capacity > 0 {
		threshold := float64(in.Vehicle.Capacity) * e.cfg.OccupancyThresholdPercent / 100
		if float64(in.Passengers) > threshold {
			b.OccupancySurcharge = round2(b.BasePrice * e.cfg.OccupancySurchargePercent / 100)
		}
	}

	// Step 5: add-on price.
	var addOnTotal float64
	for _, a := range in.AddOns {
		addOnTotal += a.AddOn.BasePrice * (a.AddOn.ModifierPercent / 100) * float64(a.Quantity)
	}
	b.AddOnPrice = round2(addOnTotal)

	// Step 6: multi-stop surcharge beyond the second stop.
	if in.StopCount > 2 {
		b.StopSurcharge = round2(float64(in.StopCount-2) * in.Vehicle.Tariff.ExtraStopRate)
	}

	// Step 7: peak-hour surcharge on the running subtotal.
	running := b.BasePrice + b.DemandSurcharge + b.OccupancySurcharge + b.AddOnPrice + b.StopSurcharge
	if e.isPeak(in.Start) {
		b.PeakSurcharge = round2(running * (e.cfg.PeakMultiplier - 1))
	}

	// Step 8: minimum-fare floor.
	subtotal := round2(running + b.PeakSurcharge)
	if subtotal < in.Vehicle.Tariff.MinimumFare {
		subtotal = round2(in.Vehicle.Tariff.MinimumFare)
	}
	b.Subtotal = subtotal

	// Steps 9 and 10: tax and total.
	b.TaxAmount = round2(subtotal * e.cfg.TaxPercent / 100)
	b.Total = round2(subtotal + b.TaxAmount)

	return b, nil
}

// tariffPrice chooses the weekly/daily/hourly tier by ceiling-rounded
// duration: >=7 days uses the weekly rate, >=1 day the daily rate,
// anything shorter the hourly rate.
func tariffPrice(t domain.Tariff, duration time.Duration) (float64, error) {
	hours := math.Ceil(duration.Hours())
	days := math.Ceil(hours / 24)

	switch {
	case duration >= 7*24*time.Hour:
		if t.WeeklyRate <= 0 {
			return 0, ErrMissingTariff
		}
		return t.WeeklyRate * math.Ceil(days/7), nil
	case duration >= 24*time.Hour:
		if t.DailyRate <= 0 {
			return 0, ErrMissingTariff
		}
		return t.DailyRate * days, nil
	default:
		if t.HourlyRate <= 0 {
			return 0, ErrMissingTariff
		}
		return t.HourlyRate * hours, nil
	}
}

// isPeak reports whether the start time falls in a weekday morning or
// evening peak window.
func (e *PricingEngine) isPeak(start time.Time) bool {
	weekday := start.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return false
	}

	hour := start.Hour()
	if hour >= e.cfg.PeakMorningStartHour && hour < e.cfg.PeakMorningEndHour {
		return true
	}
	return hour >= e.cfg.PeakEveningStartHour && hour < e.cfg.PeakEveningEndHour
}

// round2 rounds a monetary value to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
