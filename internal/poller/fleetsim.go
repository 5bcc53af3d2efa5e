package poller

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"bus-tracker/internal/transit"
)

// Random-walk bounds for the fleet simulation: a coordinate drift of roughly
// 50 metres and speeds anywhere from standing still to 60 km/h.
const (
	fleetDrift    = 0.001
	fleetMaxSpeed = 60
)

// StartFleetSim runs a local mutator that randomly perturbs every stored
// position each tick. It stands in for the fleet service when there is none,
// feeding the admin live view exactly like real pulls would.
func (m *Manager) StartFleetSim(ctx context.Context, seed []transit.VehiclePosition) {
	for _, p := range seed {
		p.Timestamp = time.Now()
		m.countOutcome(m.positions.Upsert(p))
	}
	m.startTask(ctx, "fleet-sim", m.runFleetSim)
}

func (m *Manager) runFleetSim(ctx context.Context) {
	log.Info().Dur("interval", m.opts.PullInterval).Msg("Starting fleet simulation")

	ticker := time.NewTicker(m.opts.PullInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Fleet simulation stopped")
			return
		case <-ticker.C:
			for _, p := range m.positions.List() {
				p.Lat += (rand.Float64() - 0.5) * fleetDrift
				p.Lng += (rand.Float64() - 0.5) * fleetDrift
				p.SpeedKmh = float64(rand.IntN(fleetMaxSpeed + 1))
				p.Timestamp = time.Now()
				m.countOutcome(m.positions.Upsert(p))
			}
		}
	}
}
