package trip

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"bus-tracker/internal/transit"
)

// Rejection reasons for invalid transitions. Callers treat these as no-ops,
// never as fatal failures.
var (
	ErrNoStops       = errors.New("no stops defined")
	ErrNotActive     = errors.New("no active trip")
	ErrAlreadyActive = errors.New("trip already active")
)

// Snapshot is an immutable view of the machine for projections.
type Snapshot struct {
	Status           transit.TripStatus
	Route            transit.Route
	CurrentStopIndex int
}

// Subscriber is invoked synchronously after every successful transition.
type Subscriber func(Snapshot)

// Machine advances a driver's trip through an ordered stop list.
//
//	NotStarted -> Active        Start
//	Active     -> Active        Advance (index clamped at the last stop)
//	Active     -> Completed     End at the last stop
//	Active     -> NotStarted    End before the last stop (index reset)
//	Completed  -> Active        Start (a trip may restart)
//
// Reaching the last stop never auto-completes; an explicit End is required.
type Machine struct {
	mu      sync.Mutex
	status  transit.TripStatus
	route   transit.Route
	current int

	subMu  sync.Mutex
	subs   map[int]Subscriber
	nextID int
}

func NewMachine() *Machine {
	return &Machine{subs: make(map[int]Subscriber)}
}

// Start begins a trip over the given route from its first stop.
func (m *Machine) Start(route transit.Route) error {
	if len(route.Stops) == 0 {
		return ErrNoStops
	}
	m.mu.Lock()
	if m.status == transit.TripActive {
		m.mu.Unlock()
		return ErrAlreadyActive
	}
	m.status = transit.TripActive
	m.route = route
	m.current = 0
	snap := m.snapshotLocked()
	m.mu.Unlock()

	log.Info().Str("route", route.Name).Int("stops", len(route.Stops)).Msg("Trip started")
	m.notify(snap)
	return nil
}

// Advance moves the cursor to the next stop, clamped at the last one.
func (m *Machine) Advance() error {
	m.mu.Lock()
	if m.status != transit.TripActive {
		m.mu.Unlock()
		return ErrNotActive
	}
	if m.current < len(m.route.Stops)-1 {
		m.current++
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// End finishes the trip. Ending at the last stop completes it and keeps the
// final index; ending earlier is a reset back to NotStarted with index 0.
func (m *Machine) End() error {
	m.mu.Lock()
	if m.status != transit.TripActive {
		m.mu.Unlock()
		return ErrNotActive
	}
	if m.current == len(m.route.Stops)-1 {
		m.status = transit.TripCompleted
	} else {
		m.status = transit.TripNotStarted
		m.current = 0
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	log.Info().Str("route", snap.Route.Name).Str("status", snap.Status.String()).Msg("Trip ended")
	m.notify(snap)
	return nil
}

// NextStop returns the stop after the current one, if any.
func (m *Machine) NextStop() (transit.Stop, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != transit.TripActive {
		return transit.Stop{}, false
	}
	next := m.current + 1
	if next >= len(m.route.Stops) {
		return transit.Stop{}, false
	}
	return m.route.Stops[next], true
}

// CurrentStop returns the stop at the cursor while a trip is active.
func (m *Machine) CurrentStop() (transit.Stop, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != transit.TripActive || len(m.route.Stops) == 0 {
		return transit.Stop{}, false
	}
	return m.route.Stops[m.current], true
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{Status: m.status, Route: m.route, CurrentStopIndex: m.current}
}

// Subscribe registers fn for transition notifications and returns an
// unsubscribe function.
func (m *Machine) Subscribe(fn Subscriber) func() {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Machine) notify(snap Snapshot) {
	m.subMu.Lock()
	fns := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
