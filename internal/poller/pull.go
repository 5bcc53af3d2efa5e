package poller

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"bus-tracker/internal/remote"
	"bus-tracker/internal/transit"
)

// Transient pull failures are retried within a tick, briefly and bounded so
// the retry window stays well inside the poll interval.
const (
	pullRetryDelay = 250 * time.Millisecond
	pullRetries    = 2
)

func (m *Manager) runPull(ctx context.Context, vehicleID string) {
	log.Info().Str("vehicle", vehicleID).Dur("interval", m.opts.PullInterval).Msg("Starting pull task")

	// Route/stop metadata is fetched once per task, not per tick.
	if m.opts.OnRoute != nil {
		route, err := m.client.FetchRoute(ctx, vehicleID)
		if err != nil {
			log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Could not fetch route metadata")
		} else {
			m.opts.OnRoute(vehicleID, route)
		}
	}

	ticker := time.NewTicker(m.opts.PullInterval)
	defer ticker.Stop()

	// Immediate pull on start, then on every tick.
	m.pullOnce(ctx, vehicleID)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("vehicle", vehicleID).Msg("Pull task stopped")
			return
		case <-ticker.C:
			m.pullOnce(ctx, vehicleID)
		}
	}
}

func (m *Manager) pullOnce(ctx context.Context, vehicleID string) {
	tickStart := time.Now()

	// The observation stamp is taken at request issue time so that a late
	// response from an earlier request can never overwrite a newer position.
	issued := time.Now()

	var loc remote.Location
	op := func() error {
		var err error
		loc, err = m.client.FetchLocation(ctx, vehicleID)
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(pullRetryDelay), pullRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if m.metrics != nil {
			m.metrics.PullErrsTotal.Inc()
		}
		log.Warn().Err(err).Str("vehicle", vehicleID).Msg("Pull failed, keeping last known position")
		return
	}
	if m.metrics != nil {
		m.metrics.PullsTotal.Inc()
	}

	outcome := m.positions.Upsert(transit.VehiclePosition{
		VehicleID: vehicleID,
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		SpeedKmh:  loc.SpeedKmh,
		Timestamp: issued,
	})
	m.countOutcome(outcome)

	if m.metrics != nil {
		m.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	}
}
