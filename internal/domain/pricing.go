package domain

// AddOn is a bookable extra (child seat, wifi, driver assistance, ...).
// Its price contribution is BasePrice x ModifierPercent/100 per unit.
type AddOn struct {
	ID              string
	Name            string
	BasePrice       float64
	ModifierPercent float64
}

// PriceBreakdown holds every term of a computed quote. All terms are
// retained because they are surfaced to the requester and audited;
// Total is always Subtotal + TaxAmount.
type PriceBreakdown struct {
	TariffPrice        float64 `json:"tariff_price"`
	DistancePrice      float64 `json:"distance_price"`
	BasePrice          float64 `json:"base_price"` // higher of tariff and distance figures
	DemandMultiplier   float64 `json:"demand_multiplier"`
	DemandSurcharge    float64 `json:"demand_surcharge"`
	OccupancySurcharge float64 `json:"occupancy_surcharge"`
	AddOnPrice         float64 `json:"add_on_price"`
	StopSurcharge      float64 `json:"stop_surcharge"`
	PeakSurcharge      float64 `json:"peak_surcharge"`
	Subtotal           float64 `json:"subtotal"`
	TaxAmount          float64 `json:"tax_amount"`
	Total              float64 `json:"total"`
	Currency           string  `json:"currency"`
}

// RouteEstimate is the distance/duration figure produced by the routing
// collaborator. Optional: pricing degrades to tariff-only without it.
type RouteEstimate struct {
	DistanceMeters  float64
	DurationSeconds float64
}
