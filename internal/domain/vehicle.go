package domain

import "time"

// VehicleCategory classifies a vehicle for tariff and capacity purposes.
type VehicleCategory string

const (
	VehicleCategorySedan VehicleCategory = "SEDAN"
	VehicleCategorySUV   VehicleCategory = "SUV"
	VehicleCategoryVan   VehicleCategory = "VAN"
	VehicleCategoryBus   VehicleCategory = "BUS"
)

// VehicleStatus represents the operational status of a vehicle.
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusUnavailable VehicleStatus = "UNAVAILABLE"
)

// Tariff holds the pricing rates for a vehicle.
// Rates are in the service currency with two decimal places.
type Tariff struct {
	HourlyRate    float64
	DailyRate     float64
	WeeklyRate    float64
	PerKmRate     float64
	PerMinuteRate float64
	MinimumFare   float64
	ExtraStopRate float64 // per route stop beyond the second
}

// Vehicle represents a bookable vehicle in the fleet.
type Vehicle struct {
	ID        string
	Name      string
	Category  VehicleCategory
	Capacity  int
	Location  string
	Tariff    Tariff
	Status    VehicleStatus
	Active    bool
	CreatedAt time.Time
}

// HighCapacity reports whether the vehicle is in a bus-like class
// subject to the occupancy surcharge.
func (v *Vehicle) HighCapacity() bool {
	return v.Category == VehicleCategoryBus
}
