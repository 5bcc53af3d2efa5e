package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-tracker/internal/maplayer"
	"bus-tracker/internal/remote"
	"bus-tracker/internal/transit"
)

type countingSurface struct {
	mu      sync.Mutex
	adds    int
	moves   int
	routes  int
	markers map[string]bool
}

func (s *countingSurface) AddMarker(id string, lat, lng float64, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markers == nil {
		s.markers = make(map[string]bool)
	}
	s.markers[id] = true
	s.adds++
}
func (s *countingSurface) MoveMarker(id string, lat, lng float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves++
}
func (s *countingSurface) RemoveMarker(id string) {}
func (s *countingSurface) SetRoute(routeID string, coords [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes++
}
func (s *countingSurface) ClearRoute(routeID string) {}
func (s *countingSurface) AddStopMarker(routeID, name string, lat, lng float64) {}

func (s *countingSurface) addCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adds
}

// Scenario: a vehicle with no stored position starts being pulled; the store
// ends up with exactly the fetched tuple and the map gains exactly one marker.
func TestTrackingFromColdStart(t *testing.T) {
	fleet := &fakeFleet{
		location: remote.Location{Lat: 18.52, Lng: 73.86},
		route:    testRoute(),
	}
	surface := &countingSurface{}
	adapter := maplayer.NewAdapter(surface)

	m, positions, _ := newTestManager(fleet, Options{
		OnRoute: func(vehicleID string, r transit.Route) { adapter.SetRoute(r) },
	})
	defer m.Stop()

	positions.Subscribe(func(transit.VehiclePosition) {
		adapter.RenderPositions(positions.List())
	})

	m.StartPull(context.Background(), "V1")

	require.Eventually(t, func() bool { return fleet.fetchCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	m.StopPull("V1")

	got, ok := positions.Get("V1")
	require.True(t, ok)
	assert.Equal(t, 18.52, got.Lat)
	assert.Equal(t, 73.86, got.Lng)

	// Repeated identical pulls must not duplicate the marker.
	assert.Equal(t, 1, surface.addCount())
	assert.Equal(t, 1, surface.routes)
}
