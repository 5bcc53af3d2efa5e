package poller

import (
	"context"
	"sync"
	"time"

	"bus-tracker/internal/metrics"
	"bus-tracker/internal/remote"
	"bus-tracker/internal/store"
	"bus-tracker/internal/transit"
	"bus-tracker/internal/trip"
)

// FleetClient is the capability set the poller needs from the fleet service.
type FleetClient interface {
	FetchLocation(ctx context.Context, vehicleID string) (remote.Location, error)
	FetchRoute(ctx context.Context, vehicleID string) (transit.Route, error)
	PushLocation(ctx context.Context, loc remote.Location) error
}

// Options tune the polling cadence and driver-side simulation behaviour.
type Options struct {
	PullInterval time.Duration
	PushInterval time.Duration

	// LoopRoute makes the push simulation cycle back to the first stop after
	// the last one. Off by default: real trips hold at the final stop until
	// the driver ends them.
	LoopRoute bool

	// Jitter perturbs pushed coordinates slightly, for pure-simulation runs.
	Jitter bool

	// OnRoute is called once per pull task with the vehicle's route metadata.
	OnRoute func(vehicleID string, route transit.Route)
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every polling task. Tasks are keyed (one pull per vehicle, one
// push per driver session) and starting a task for a key cancels and waits out
// any prior task under the same key, so no two loops for the same vehicle can
// ever run concurrently.
type Manager struct {
	client    FleetClient
	positions *store.PositionStore
	trips     *trip.Machine
	opts      Options
	metrics   *metrics.Collector

	mu    sync.Mutex
	tasks map[string]*task
	wg    sync.WaitGroup
}

func NewManager(client FleetClient, positions *store.PositionStore, trips *trip.Machine, opts Options, mcol *metrics.Collector) *Manager {
	if opts.PullInterval <= 0 {
		opts.PullInterval = 3 * time.Second
	}
	if opts.PushInterval <= 0 {
		opts.PushInterval = 5 * time.Second
	}
	return &Manager{
		client:    client,
		positions: positions,
		trips:     trips,
		opts:      opts,
		metrics:   mcol,
		tasks:     make(map[string]*task),
	}
}

// StartPull begins pulling positions for a vehicle, replacing any pull task
// already running for it.
func (m *Manager) StartPull(ctx context.Context, vehicleID string) {
	m.startTask(ctx, "pull/"+vehicleID, func(ctx context.Context) {
		m.runPull(ctx, vehicleID)
	})
}

// StopPull cancels the pull task for a vehicle and waits for it to exit.
func (m *Manager) StopPull(vehicleID string) {
	m.stopTask("pull/" + vehicleID)
}

// StartPush begins the driver-side push loop for a vehicle.
func (m *Manager) StartPush(ctx context.Context, vehicleID string) {
	m.startTask(ctx, "push/"+vehicleID, func(ctx context.Context) {
		m.runPush(ctx, vehicleID)
	})
}

// StopPush cancels the push task for a vehicle and waits for it to exit.
func (m *Manager) StopPush(vehicleID string) {
	m.stopTask("push/" + vehicleID)
}

func (m *Manager) startTask(parent context.Context, key string, run func(context.Context)) {
	m.mu.Lock()
	if prev, ok := m.tasks[key]; ok {
		prev.cancel()
		m.mu.Unlock()
		<-prev.done
		m.mu.Lock()
	}
	ctx, cancel := context.WithCancel(parent)
	t := &task{cancel: cancel, done: make(chan struct{})}
	m.tasks[key] = t
	if m.metrics != nil {
		m.metrics.ActiveTasks.Set(float64(len(m.tasks)))
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer close(t.done)
		run(ctx)
		m.mu.Lock()
		if cur, ok := m.tasks[key]; ok && cur == t {
			delete(m.tasks, key)
			if m.metrics != nil {
				m.metrics.ActiveTasks.Set(float64(len(m.tasks)))
			}
		}
		m.mu.Unlock()
	}()
}

func (m *Manager) stopTask(key string) {
	m.mu.Lock()
	t, ok := m.tasks[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	<-t.done
}

// Stop cancels every task and waits for all of them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, t := range m.tasks {
		t.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) countOutcome(outcome store.UpsertOutcome) {
	if m.metrics == nil {
		return
	}
	switch outcome {
	case store.UpsertRejectedInvalid:
		m.metrics.UpdatesRejected.WithLabelValues("invalid").Inc()
	case store.UpsertRejectedStale:
		m.metrics.UpdatesRejected.WithLabelValues("stale").Inc()
	default:
		m.metrics.TrackedVehicles.Set(float64(len(m.positions.List())))
	}
}
