package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bus-tracker/internal/api"
	"bus-tracker/internal/config"
	"bus-tracker/internal/events"
	"bus-tracker/internal/maplayer"
	"bus-tracker/internal/metrics"
	"bus-tracker/internal/poller"
	"bus-tracker/internal/remote"
	"bus-tracker/internal/session"
	"bus-tracker/internal/store"
	"bus-tracker/internal/transit"
	"bus-tracker/internal/trip"
	"bus-tracker/internal/views"
)

func main() {
	if os.Getenv("LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	if os.Getenv("DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config error")
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.PullInterval, cfg.PushInterval)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Session state: Redis when configured, in-memory otherwise
	var sessions session.State
	if cfg.RedisAddr != "" {
		redisState, err := session.NewRedisState(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis error")
		}
		defer redisState.Close()
		sessions = redisState
	} else {
		sessions = session.NewMemoryState()
	}

	positions := store.NewPositionStore()
	trips := trip.NewMachine()

	// Map adapter over a tracing surface; deployments embed a real map widget
	adapter := maplayer.NewAdapter(&logSurface{})
	positions.Subscribe(func(transit.VehiclePosition) {
		// Always render from the store's current snapshot, never from the
		// value captured by the notification.
		adapter.RenderPositions(positions.List())
	})

	// Trip transitions re-derive the progress view and ETA
	trips.Subscribe(func(snap trip.Snapshot) {
		if err := sessions.SetTripActive(ctx, snap.Status == transit.TripActive); err != nil {
			log.Warn().Err(err).Msg("Could not persist trip-active flag")
		}
		logProgress(positions, snap, cfg)
	})

	// Event bridge
	if cfg.NATSURL != "" {
		bridge, err := events.NewBridge(cfg.NATSURL, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatal().Err(err).Msg("NATS error")
		}
		defer bridge.Close()
		defer bridge.BindStore(positions)()
	}

	client := remote.NewClient(cfg.FleetBaseURL, cfg.FleetAuthToken, cfg.RequestTimeout)
	manager := poller.NewManager(client, positions, trips, poller.Options{
		PullInterval: cfg.PullInterval,
		PushInterval: cfg.PushInterval,
		LoopRoute:    cfg.LoopRoute,
		Jitter:       cfg.Jitter,
		OnRoute: func(vehicleID string, route transit.Route) {
			adapter.SetRoute(route)
		},
	}, mcol)

	switch cfg.Mode {
	case config.ModeFleetSim:
		manager.StartFleetSim(ctx, seedFleet())

	case config.ModeObserver:
		if err := sessions.SetSelectedVehicle(ctx, cfg.VehicleID); err != nil {
			log.Warn().Err(err).Msg("Could not persist selected vehicle")
		}
		manager.StartPull(ctx, cfg.VehicleID)

	case config.ModeDriver:
		if err := sessions.SetSelectedVehicle(ctx, cfg.VehicleID); err != nil {
			log.Warn().Err(err).Msg("Could not persist selected vehicle")
		}
		resuming, err := sessions.TripActive(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Could not read trip-active flag")
		}
		if vehicle, err := client.FetchVehicle(ctx, cfg.VehicleID); err != nil {
			log.Warn().Err(err).Str("vehicle", cfg.VehicleID).Msg("Could not fetch vehicle metadata")
		} else {
			log.Info().Str("vehicle", vehicle.ID).Str("number", vehicle.Number).Str("driver", vehicle.Driver).Msg("Vehicle assigned")
		}
		route, err := client.FetchRoute(ctx, cfg.VehicleID)
		if err != nil {
			log.Fatal().Err(err).Str("vehicle", cfg.VehicleID).Msg("No route assigned")
		}
		adapter.SetRoute(route)
		if resuming {
			log.Info().Str("route", route.Name).Msg("Resuming trip from saved session")
		}
		if err := trips.Start(route); err != nil {
			log.Fatal().Err(err).Str("route", route.Name).Msg("Could not start trip")
		}
		manager.StartPull(ctx, cfg.VehicleID)
		manager.StartPush(ctx, cfg.VehicleID)
	}

	// Status API
	statusSrv := api.NewServer(positions, trips, sessions, cfg.DefaultSpeedKmh)
	go func() {
		if err := statusSrv.Listen(cfg.StatusAddr); err != nil {
			log.Error().Err(err).Msg("Status API error")
		}
	}()

	log.Info().
		Str("mode", cfg.Mode).
		Str("vehicle", cfg.VehicleID).
		Dur("pull_interval", cfg.PullInterval).
		Dur("push_interval", cfg.PushInterval).
		Msg("Tracker running")

	// Block until context cancelled
	<-ctx.Done()
	manager.Stop()
	_ = statusSrv.Shutdown()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Info().Msg("Shutdown complete")
}

// logProgress recomputes the progress list and next-stop ETA after a trip
// transition, reading the vehicle position at the moment of use.
func logProgress(positions *store.PositionStore, snap trip.Snapshot, cfg *config.Config) {
	for _, entry := range views.ProgressList(snap) {
		log.Debug().Str("stop", entry.Stop.Name).Str("state", string(entry.State)).Msg("Progress")
	}
	pos, ok := positions.Get(cfg.VehicleID)
	if !ok {
		return
	}
	if eta, ok := views.NextStopETA(pos, snap, cfg.DefaultSpeedKmh); ok {
		log.Info().
			Str("stop", eta.TargetStop).
			Float64("distance_km", eta.DistanceKm).
			Int("minutes", eta.Minutes).
			Msg("ETA to next stop")
	}
}

// seedFleet provides starting positions for fleet-simulation runs.
func seedFleet() []transit.VehiclePosition {
	return []transit.VehiclePosition{
		{VehicleID: "MH12-AB-1234", Lat: 18.5204, Lng: 73.8567, SpeedKmh: 45},
		{VehicleID: "MH14-XY-9876", Lat: 18.5250, Lng: 73.8600, SpeedKmh: 30},
		{VehicleID: "MH12-CD-4567", Lat: 18.5300, Lng: 73.8650, SpeedKmh: 50},
		{VehicleID: "MH13-EF-8910", Lat: 18.5150, Lng: 73.8500, SpeedKmh: 20},
		{VehicleID: "MH12-GH-2222", Lat: 18.5400, Lng: 73.8750, SpeedKmh: 0},
	}
}

// wrapPublisherMetrics adapts the Collector to the events.PublisherMetrics
// interface; a nil collector disables instrumentation.
func wrapPublisherMetrics(c *metrics.Collector) events.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) PublishedInc()                  { p.c.NATSPublished.Inc() }
func (p *pubMetrics) PublishErrInc()                 { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) SetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}

// logSurface traces rendering operations; it stands in for a real map widget.
type logSurface struct{}

func (logSurface) AddMarker(id string, lat, lng float64, label string) {
	log.Debug().Str("marker", id).Float64("lat", lat).Float64("lng", lng).Msg("Map: add marker")
}

func (logSurface) MoveMarker(id string, lat, lng float64) {
	log.Debug().Str("marker", id).Float64("lat", lat).Float64("lng", lng).Msg("Map: move marker")
}

func (logSurface) RemoveMarker(id string) {
	log.Debug().Str("marker", id).Msg("Map: remove marker")
}

func (logSurface) SetRoute(routeID string, coords [][2]float64) {
	log.Debug().Str("route", routeID).Int("points", len(coords)).Msg("Map: set route line")
}

func (logSurface) ClearRoute(routeID string) {
	log.Debug().Str("route", routeID).Msg("Map: clear route line")
}

func (logSurface) AddStopMarker(routeID, name string, lat, lng float64) {
	log.Debug().Str("route", routeID).Str("stop", name).Msg("Map: add stop marker")
}
