package store

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus-tracker/internal/transit"
)

func pos(id string, lat, lng float64) transit.VehiclePosition {
	return transit.VehiclePosition{VehicleID: id, Lat: lat, Lng: lng, SpeedKmh: 25}
}

func TestUpsertAndGet(t *testing.T) {
	s := NewPositionStore()

	outcome := s.Upsert(pos("V1", 18.52, 73.86))
	assert.Equal(t, UpsertApplied, outcome)

	got, ok := s.Get("V1")
	require.True(t, ok)
	assert.Equal(t, 18.52, got.Lat)
	assert.Equal(t, 73.86, got.Lng)
	assert.False(t, got.LastUpdated.IsZero())

	_, ok = s.Get("V2")
	assert.False(t, ok)
}

func TestUpsertRejectsInvalidCoordinates(t *testing.T) {
	s := NewPositionStore()
	require.Equal(t, UpsertApplied, s.Upsert(pos("V1", 18.52, 73.86)))

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"nan lat", math.NaN(), 73.86},
		{"nan lng", 18.52, math.NaN()},
		{"lat out of range", 91, 73.86},
		{"lng out of range", 18.52, 181},
		{"inf lat", math.Inf(1), 73.86},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, UpsertRejectedInvalid, s.Upsert(pos("V1", tc.lat, tc.lng)))
			got, ok := s.Get("V1")
			require.True(t, ok)
			assert.Equal(t, 18.52, got.Lat)
			assert.Equal(t, 73.86, got.Lng)
		})
	}
}

func TestUpsertRejectsEmptyVehicleID(t *testing.T) {
	s := NewPositionStore()
	assert.Equal(t, UpsertRejectedInvalid, s.Upsert(pos("", 18.52, 73.86)))
	assert.Empty(t, s.List())
}

func TestUpsertRejectsOutOfOrderTimestamps(t *testing.T) {
	s := NewPositionStore()
	base := time.Now()

	newer := pos("V1", 18.53, 73.87)
	newer.Timestamp = base
	require.Equal(t, UpsertApplied, s.Upsert(newer))

	older := pos("V1", 18.40, 73.80)
	older.Timestamp = base.Add(-10 * time.Second)
	assert.Equal(t, UpsertRejectedStale, s.Upsert(older))

	got, _ := s.Get("V1")
	assert.Equal(t, 18.53, got.Lat)

	// Equal timestamps are latest-applied-wins, not rejected.
	same := pos("V1", 18.54, 73.88)
	same.Timestamp = base
	assert.Equal(t, UpsertApplied, s.Upsert(same))
}

func TestListPreservesInsertionOrder(t *testing.T) {
	s := NewPositionStore()
	s.Upsert(pos("V3", 18.53, 73.87))
	s.Upsert(pos("V1", 18.52, 73.86))
	s.Upsert(pos("V2", 18.51, 73.85))
	// Re-upserting must not change ordering.
	s.Upsert(pos("V1", 18.55, 73.88))

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "V3", list[0].VehicleID)
	assert.Equal(t, "V1", list[1].VehicleID)
	assert.Equal(t, "V2", list[2].VehicleID)
	assert.Equal(t, 18.55, list[1].Lat)
}

func TestSubscribeNotifiesOnAcceptedUpdatesOnly(t *testing.T) {
	s := NewPositionStore()
	var seen []transit.VehiclePosition
	unsub := s.Subscribe(func(p transit.VehiclePosition) { seen = append(seen, p) })

	s.Upsert(pos("V1", 18.52, 73.86))
	s.Upsert(pos("V1", math.NaN(), 73.86))
	require.Len(t, seen, 1)
	assert.Equal(t, "V1", seen[0].VehicleID)

	unsub()
	s.Upsert(pos("V1", 18.53, 73.87))
	assert.Len(t, seen, 1)
}
