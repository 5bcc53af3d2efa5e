package views

import (
	"time"

	"bus-tracker/internal/geo"
	"bus-tracker/internal/transit"
	"bus-tracker/internal/trip"
)

// VehicleStatus is the badge shown next to a vehicle in the live table.
type VehicleStatus string

const (
	StatusStopped VehicleStatus = "Stopped"
	StatusSlow    VehicleStatus = "Slow"
	StatusMoving  VehicleStatus = "Moving"
)

func StatusForSpeed(speedKmh float64) VehicleStatus {
	switch {
	case speedKmh <= 0:
		return StatusStopped
	case speedKmh < 20:
		return StatusSlow
	default:
		return StatusMoving
	}
}

// FleetRow is one line of the admin live-tracking table.
type FleetRow struct {
	VehicleID   string        `json:"vehicleId"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	SpeedKmh    float64       `json:"speedKmh"`
	Status      VehicleStatus `json:"status"`
	LastUpdated time.Time     `json:"lastUpdated"`
}

func FleetTable(positions []transit.VehiclePosition) []FleetRow {
	rows := make([]FleetRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, FleetRow{
			VehicleID:   p.VehicleID,
			Lat:         p.Lat,
			Lng:         p.Lng,
			SpeedKmh:    p.SpeedKmh,
			Status:      StatusForSpeed(p.SpeedKmh),
			LastUpdated: p.LastUpdated,
		})
	}
	return rows
}

// StopState classifies a stop in the progress list.
type StopState string

const (
	StopDone     StopState = "done"
	StopCurrent  StopState = "current"
	StopUpcoming StopState = "upcoming"
)

type ProgressEntry struct {
	Stop  transit.Stop `json:"stop"`
	State StopState    `json:"state"`
}

// ProgressList highlights each stop of the trip relative to the cursor.
func ProgressList(snap trip.Snapshot) []ProgressEntry {
	entries := make([]ProgressEntry, 0, len(snap.Route.Stops))
	for i, s := range snap.Route.Stops {
		state := StopUpcoming
		switch {
		case i < snap.CurrentStopIndex:
			state = StopDone
		case i == snap.CurrentStopIndex:
			state = StopCurrent
		}
		entries = append(entries, ProgressEntry{Stop: s, State: state})
	}
	return entries
}

// ETAView is the derived arrival estimate for the next stop. It is never
// persisted; callers recompute it from current state on every change.
type ETAView struct {
	TargetStop string  `json:"targetStop"`
	DistanceKm float64 `json:"distanceKm"`
	Minutes    int     `json:"minutes"`
}

// NextStopETA computes the ETA from the vehicle's position to the stop after
// the current one. Absent when the trip is not active, the route has no next
// stop, or no usable speed exists (vehicle speed, falling back to
// defaultSpeedKmh when the vehicle reports none).
func NextStopETA(pos transit.VehiclePosition, snap trip.Snapshot, defaultSpeedKmh float64) (ETAView, bool) {
	if snap.Status != transit.TripActive {
		return ETAView{}, false
	}
	next := snap.CurrentStopIndex + 1
	if next >= len(snap.Route.Stops) {
		return ETAView{}, false
	}
	target := snap.Route.Stops[next]

	speed := pos.SpeedKmh
	if speed <= 0 {
		speed = defaultSpeedKmh
	}
	minutes, ok := geo.ETAMinutes(pos.Lat, pos.Lng, target.Lat, target.Lng, speed)
	if !ok {
		return ETAView{}, false
	}
	return ETAView{
		TargetStop: target.Name,
		DistanceKm: geo.DistanceKm(pos.Lat, pos.Lng, target.Lat, target.Lng),
		Minutes:    minutes,
	}, true
}
