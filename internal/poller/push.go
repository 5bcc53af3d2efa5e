package poller

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"bus-tracker/internal/geo"
	"bus-tracker/internal/remote"
	"bus-tracker/internal/transit"
	"bus-tracker/internal/trip"
)

// jitterSpread is the coordinate perturbation used in pure-simulation mode,
// roughly 50 metres either way.
const jitterSpread = 0.001

func (m *Manager) runPush(ctx context.Context, vehicleID string) {
	log.Info().Str("vehicle", vehicleID).Dur("interval", m.opts.PushInterval).Msg("Starting push task")

	ticker := time.NewTicker(m.opts.PushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("vehicle", vehicleID).Msg("Push task stopped")
			return
		case <-ticker.C:
			m.pushOnce(ctx, vehicleID)
		}
	}
}

func (m *Manager) pushOnce(ctx context.Context, vehicleID string) {
	snap := m.trips.Snapshot()
	if snap.Status != transit.TripActive || len(snap.Route.Stops) == 0 {
		return
	}
	stop := snap.Route.Stops[snap.CurrentStopIndex]

	lat, lng := stop.Lat, stop.Lng
	if m.opts.Jitter {
		lat += (rand.Float64() - 0.5) * jitterSpread
		lng += (rand.Float64() - 0.5) * jitterSpread
	}

	now := time.Now()
	speed := m.estimateSpeed(vehicleID, lat, lng, now)

	loc := remote.Location{
		VehicleID: vehicleID,
		Lat:       lat,
		Lng:       lng,
		SpeedKmh:  speed,
		Status:    snap.Status.String(),
	}
	if err := m.client.PushLocation(ctx, loc); err != nil {
		// Optimistic: the local trip still advances. The fleet service stays
		// authoritative and the next successful pull corrects any divergence.
		if m.metrics != nil {
			m.metrics.PushErrsTotal.Inc()
		}
		log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Push failed, advancing locally")
	} else if m.metrics != nil {
		m.metrics.PushesTotal.Inc()
	}

	// The driver's own dashboard reads the store too, so mirror the pushed
	// position locally instead of waiting for a pull round-trip.
	outcome := m.positions.Upsert(transit.VehiclePosition{
		VehicleID: vehicleID,
		Lat:       lat,
		Lng:       lng,
		SpeedKmh:  speed,
		Timestamp: now,
	})
	m.countOutcome(outcome)

	m.advanceCursor(snap)
}

// advanceCursor moves the simulated trip forward one stop per tick. At the
// last stop it holds, unless LoopRoute is set, in which case the trip is ended
// and restarted so the cursor cycles back to stop 0 through legal transitions.
func (m *Manager) advanceCursor(snap trip.Snapshot) {
	atLast := snap.CurrentStopIndex == len(snap.Route.Stops)-1
	if !atLast {
		if err := m.trips.Advance(); err != nil {
			log.Debug().Err(err).Msg("Cursor advance rejected")
		}
		return
	}
	if !m.opts.LoopRoute {
		return
	}
	route := snap.Route
	if err := m.trips.End(); err != nil {
		return
	}
	if err := m.trips.Start(route); err != nil {
		log.Warn().Err(err).Str("route", route.Name).Msg("Could not restart looped trip")
	}
}

// estimateSpeed derives km/h from the distance to the previously stored
// position, the same way the simulator derives speed between ticks.
func (m *Manager) estimateSpeed(vehicleID string, lat, lng float64, now time.Time) float64 {
	prev, ok := m.positions.Get(vehicleID)
	if !ok || prev.Timestamp.IsZero() {
		return 0
	}
	dt := now.Sub(prev.Timestamp).Hours()
	if dt <= 0 {
		return 0
	}
	return geo.DistanceKm(prev.Lat, prev.Lng, lat, lng) / dt
}
