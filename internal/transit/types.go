package transit

import (
	"math"
	"time"
)

// Stop is a named waypoint with a fixed position in a route's traversal order.
type Stop struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Sequence int     `json:"sequence"`
}

// Route is an ordered stop list. The tracking core only ever reads routes;
// they are owned by the route-management service.
type Route struct {
	ID          string `json:"routeId"`
	Name        string `json:"name"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Stops       []Stop `json:"stops"`
}

// Vehicle metadata as served by the fleet service.
type Vehicle struct {
	ID      string `json:"vehicleId"`
	Number  string `json:"number"`
	Driver  string `json:"driver"`
	RouteID string `json:"routeId"`
}

// VehiclePosition is the last known coordinate and speed for a vehicle.
// Timestamp is the observation time reported by the source and is what the
// store compares to reject out-of-order updates; LastUpdated is set by the
// store when the update is accepted.
type VehiclePosition struct {
	VehicleID   string    `json:"vehicleId"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	SpeedKmh    float64   `json:"speedKmh"`
	Timestamp   time.Time `json:"timestamp"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type TripStatus int

const (
	TripNotStarted TripStatus = iota
	TripActive
	TripCompleted
)

func (s TripStatus) String() string {
	switch s {
	case TripActive:
		return "active"
	case TripCompleted:
		return "completed"
	default:
		return "not_started"
	}
}

// ValidCoordinates reports whether lat/lng form a usable coordinate pair.
// NaN and Inf are rejected along with out-of-range values.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
