package maplayer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-tracker/internal/transit"
)

type surfaceOp struct {
	kind string
	id   string
}

type fakeSurface struct {
	ops []surfaceOp
}

func (f *fakeSurface) AddMarker(id string, lat, lng float64, label string) {
	f.ops = append(f.ops, surfaceOp{"add", id})
}
func (f *fakeSurface) MoveMarker(id string, lat, lng float64) {
	f.ops = append(f.ops, surfaceOp{"move", id})
}
func (f *fakeSurface) RemoveMarker(id string) {
	f.ops = append(f.ops, surfaceOp{"remove", id})
}
func (f *fakeSurface) SetRoute(routeID string, coords [][2]float64) {
	f.ops = append(f.ops, surfaceOp{"setroute", routeID})
}
func (f *fakeSurface) ClearRoute(routeID string) {
	f.ops = append(f.ops, surfaceOp{"clearroute", routeID})
}
func (f *fakeSurface) AddStopMarker(routeID, name string, lat, lng float64) {
	f.ops = append(f.ops, surfaceOp{"stopmarker", name})
}

func (f *fakeSurface) count(kind string) int {
	n := 0
	for _, op := range f.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

func vp(id string, lat, lng float64) transit.VehiclePosition {
	return transit.VehiclePosition{VehicleID: id, Lat: lat, Lng: lng}
}

func TestMarkerCreatedOnceThenMoved(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	a.RenderPositions([]transit.VehiclePosition{vp("V1", 18.52, 73.86)})
	a.RenderPositions([]transit.VehiclePosition{vp("V1", 18.53, 73.87)})

	assert.Equal(t, 1, s.count("add"))
	assert.Equal(t, 1, s.count("move"))
}

func TestRenderIsIdempotent(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	snapshot := []transit.VehiclePosition{vp("V1", 18.52, 73.86), vp("V2", 18.51, 73.85)}
	a.RenderPositions(snapshot)
	before := len(s.ops)

	a.RenderPositions(snapshot)
	assert.Equal(t, before, len(s.ops), "unchanged snapshot issues no operations")
}

func TestInvalidCoordinatesSkipped(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	a.RenderPositions([]transit.VehiclePosition{
		vp("V1", 18.52, 73.86),
		vp("V2", math.NaN(), 73.85),
	})
	assert.Equal(t, 1, s.count("add"))
}

func TestRemoveVehicle(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	a.RenderPositions([]transit.VehiclePosition{vp("V1", 18.52, 73.86)})
	a.RemoveVehicle("V1")
	a.RemoveVehicle("V1") // second removal is a no-op

	require.Equal(t, 1, s.count("remove"))

	// A reappearing vehicle gets a fresh marker.
	a.RenderPositions([]transit.VehiclePosition{vp("V1", 18.52, 73.86)})
	assert.Equal(t, 2, s.count("add"))
}

func route(id string, stops ...transit.Stop) transit.Route {
	return transit.Route{ID: id, Name: id, Stops: stops}
}

func TestSetRouteReplacementOnChange(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	r1 := route("RT-1",
		transit.Stop{Name: "A", Lat: 18.45, Lng: 73.85},
		transit.Stop{Name: "B", Lat: 18.50, Lng: 73.86},
	)
	r2 := route("RT-2",
		transit.Stop{Name: "C", Lat: 18.53, Lng: 73.87},
	)

	a.SetRoute(r1)
	assert.Equal(t, 1, s.count("setroute"))
	assert.Equal(t, 0, s.count("clearroute"))
	assert.Equal(t, 2, s.count("stopmarker"))

	// Same route again: nothing re-issued.
	a.SetRoute(r1)
	assert.Equal(t, 1, s.count("setroute"))

	// Route switch: old line removed, new one added in full.
	a.SetRoute(r2)
	assert.Equal(t, 1, s.count("clearroute"))
	assert.Equal(t, 2, s.count("setroute"))
}

func TestSetRouteSkipsInvalidStops(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	a.SetRoute(route("RT-1",
		transit.Stop{Name: "A", Lat: 18.45, Lng: 73.85},
		transit.Stop{Name: "bad", Lat: 95, Lng: 73.86},
	))
	assert.Equal(t, 1, s.count("stopmarker"))
}

func TestClearRoute(t *testing.T) {
	s := &fakeSurface{}
	a := NewAdapter(s)

	a.ClearRoute() // nothing rendered yet
	assert.Equal(t, 0, s.count("clearroute"))

	a.SetRoute(route("RT-1", transit.Stop{Name: "A", Lat: 18.45, Lng: 73.85}))
	a.ClearRoute()
	assert.Equal(t, 1, s.count("clearroute"))
}
