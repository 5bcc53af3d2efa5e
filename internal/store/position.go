package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bus-tracker/internal/transit"
)

// UpsertOutcome describes what the store did with an update.
type UpsertOutcome int

const (
	UpsertApplied UpsertOutcome = iota
	UpsertRejectedInvalid
	UpsertRejectedStale
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertApplied:
		return "applied"
	case UpsertRejectedInvalid:
		return "rejected_invalid"
	default:
		return "rejected_stale"
	}
}

// Subscriber is invoked synchronously after an update is accepted.
type Subscriber func(transit.VehiclePosition)

// PositionStore holds the last known position per vehicle. Updates that fail
// coordinate validation or that carry an observation timestamp older than the
// stored one are dropped, keeping the previous value intact.
type PositionStore struct {
	mu        sync.Mutex
	positions map[string]transit.VehiclePosition
	order     []string

	subMu  sync.Mutex
	subs   map[int]Subscriber
	nextID int

	now func() time.Time
}

func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[string]transit.VehiclePosition),
		subs:      make(map[int]Subscriber),
		now:       time.Now,
	}
}

// Upsert validates and stores a position, replacing any prior value for the
// vehicle. Accepted updates are fanned out to subscribers before returning.
func (s *PositionStore) Upsert(p transit.VehiclePosition) UpsertOutcome {
	if p.VehicleID == "" || !transit.ValidCoordinates(p.Lat, p.Lng) {
		log.Warn().
			Str("vehicle", p.VehicleID).
			Float64("lat", p.Lat).
			Float64("lng", p.Lng).
			Msg("Dropping position update with invalid coordinates")
		return UpsertRejectedInvalid
	}

	s.mu.Lock()
	prev, exists := s.positions[p.VehicleID]
	if exists && !p.Timestamp.IsZero() && !prev.Timestamp.IsZero() && p.Timestamp.Before(prev.Timestamp) {
		s.mu.Unlock()
		log.Debug().
			Str("vehicle", p.VehicleID).
			Time("stored", prev.Timestamp).
			Time("incoming", p.Timestamp).
			Msg("Dropping out-of-order position update")
		return UpsertRejectedStale
	}
	p.LastUpdated = s.now()
	if !exists {
		s.order = append(s.order, p.VehicleID)
	}
	s.positions[p.VehicleID] = p
	s.mu.Unlock()

	s.notify(p)
	return UpsertApplied
}

func (s *PositionStore) Get(vehicleID string) (transit.VehiclePosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[vehicleID]
	return p, ok
}

// List returns all known positions in first-seen order.
func (s *PositionStore) List() []transit.VehiclePosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transit.VehiclePosition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.positions[id])
	}
	return out
}

// Subscribe registers fn for accepted updates and returns an unsubscribe
// function. Consumers must re-read the store at the moment of use rather than
// capture positions at registration time.
func (s *PositionStore) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *PositionStore) notify(p transit.VehiclePosition) {
	s.subMu.Lock()
	fns := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}
