package service

import (
	"context"
	"math"

	"fleet/internal/domain"
)

// Waypoint is a geographic point on a requested route.
type Waypoint struct {
	Lat float64
	Lng float64
}

// RouteEstimator estimates distance and duration for a route. It is an
// optional collaborator: when unavailable, pricing degrades gracefully
// to tariff-only.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination Waypoint, stops []Waypoint) (*domain.RouteEstimate, error)
}

// HaversineEstimator is a self-contained RouteEstimator that sums
// great-circle leg distances and assumes a fixed average speed. It
// stands in for an external routing service.
type HaversineEstimator struct {
	AvgSpeedKmh float64
}

// NewHaversineEstimator creates an estimator with a default average speed.
func NewHaversineEstimator() *HaversineEstimator {
	return &HaversineEstimator{AvgSpeedKmh: 40}
}

var _ RouteEstimator = (*HaversineEstimator)(nil)

// Estimate sums the haversine distance over origin -> stops -> destination.
func (e *HaversineEstimator) Estimate(ctx context.Context, origin, destination Waypoint, stops []Waypoint) (*domain.RouteEstimate, error) {
	points := make([]Waypoint, 0, len(stops)+2)
	points = append(points, origin)
	points = append(points, stops...)
	points = append(points, destination)

	var meters float64
	for i := 1; i < len(points); i++ {
		meters += haversineMeters(points[i-1], points[i])
	}

	speed := e.AvgSpeedKmh
	if speed <= 0 {
		speed = 40
	}
	seconds := meters / 1000 / speed * 3600

	return &domain.RouteEstimate{
		DistanceMeters:  meters,
		DurationSeconds: seconds,
	}, nil
}

const earthRadiusMeters = 6371000

func haversineMeters(a, b Waypoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
