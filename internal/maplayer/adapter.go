package maplayer

import (
	"sync"

	"github.com/rs/zerolog/log"

	"bus-tracker/internal/transit"
)

// Surface is the rendering surface the adapter draws on. Implementations wrap
// whatever map widget is in use; the adapter owns no positioning logic beyond
// deciding which operations to issue.
type Surface interface {
	AddMarker(id string, lat, lng float64, label string)
	MoveMarker(id string, lat, lng float64)
	RemoveMarker(id string)
	// SetRoute draws a full polyline; coords are [lng, lat] pairs in GeoJSON
	// order. Geometry changes always go through ClearRoute + SetRoute since
	// rendering surfaces replace line layers wholesale.
	SetRoute(routeID string, coords [][2]float64)
	ClearRoute(routeID string)
	AddStopMarker(routeID, name string, lat, lng float64)
}

// Adapter translates position and route state into idempotent surface
// operations: a vehicle marker is created lazily on first sighting and moved
// afterwards, never duplicated.
type Adapter struct {
	surface Surface

	mu       sync.Mutex
	rendered map[string][2]float64 // vehicle -> last drawn lat/lng
	route    transit.Route
	hasRoute bool
}

func NewAdapter(surface Surface) *Adapter {
	return &Adapter{
		surface:  surface,
		rendered: make(map[string][2]float64),
	}
}

// RenderPositions syncs vehicle markers with a store snapshot. Unchanged
// positions issue no operations.
func (a *Adapter) RenderPositions(positions []transit.VehiclePosition) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range positions {
		if !transit.ValidCoordinates(p.Lat, p.Lng) {
			log.Warn().Str("vehicle", p.VehicleID).Msg("Skipping marker with invalid coordinates")
			continue
		}
		at := [2]float64{p.Lat, p.Lng}
		last, seen := a.rendered[p.VehicleID]
		switch {
		case !seen:
			a.surface.AddMarker(p.VehicleID, p.Lat, p.Lng, p.VehicleID)
		case last != at:
			a.surface.MoveMarker(p.VehicleID, p.Lat, p.Lng)
		default:
			continue
		}
		a.rendered[p.VehicleID] = at
	}
}

// RemoveVehicle drops a vehicle marker, e.g. on deselection.
func (a *Adapter) RemoveVehicle(vehicleID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.rendered[vehicleID]; !ok {
		return
	}
	a.surface.RemoveMarker(vehicleID)
	delete(a.rendered, vehicleID)
}

// SetRoute draws the route polyline and stop markers. Switching routes clears
// the old line first; re-rendering an unchanged route is a no-op.
func (a *Adapter) SetRoute(route transit.Route) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hasRoute && sameStops(a.route, route) {
		return
	}
	if a.hasRoute {
		a.surface.ClearRoute(a.route.ID)
	}

	coords := make([][2]float64, 0, len(route.Stops))
	for _, s := range route.Stops {
		if !transit.ValidCoordinates(s.Lat, s.Lng) {
			log.Warn().Str("route", route.ID).Str("stop", s.Name).Msg("Skipping stop with invalid coordinates")
			continue
		}
		coords = append(coords, [2]float64{s.Lng, s.Lat})
	}
	a.surface.SetRoute(route.ID, coords)
	for _, s := range route.Stops {
		if !transit.ValidCoordinates(s.Lat, s.Lng) {
			continue
		}
		a.surface.AddStopMarker(route.ID, s.Name, s.Lat, s.Lng)
	}
	a.route = route
	a.hasRoute = true
}

// ClearRoute removes the rendered polyline, if any.
func (a *Adapter) ClearRoute() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasRoute {
		return
	}
	a.surface.ClearRoute(a.route.ID)
	a.route = transit.Route{}
	a.hasRoute = false
}

func sameStops(a, b transit.Route) bool {
	if a.ID != b.ID || len(a.Stops) != len(b.Stops) {
		return false
	}
	for i := range a.Stops {
		if a.Stops[i] != b.Stops[i] {
			return false
		}
	}
	return true
}
