package session

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// State persists the small pieces of tracking context that must survive a
// restart: the vehicle being tracked and whether a trip is underway. Plain
// key/value entries, no schema versioning.
type State interface {
	SetSelectedVehicle(ctx context.Context, vehicleID string) error
	SelectedVehicle(ctx context.Context) (string, error)
	SetTripActive(ctx context.Context, active bool) error
	TripActive(ctx context.Context) (bool, error)
}

const (
	keySelectedVehicle = "tracker:selected_vehicle"
	keyTripActive      = "tracker:trip_active"
)

// RedisState stores session entries in Redis.
type RedisState struct {
	client *redis.Client
}

func NewRedisState(ctx context.Context, addr, password string, db int) (*RedisState, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisState{client: client}, nil
}

func (s *RedisState) Close() error { return s.client.Close() }

func (s *RedisState) SetSelectedVehicle(ctx context.Context, vehicleID string) error {
	return s.client.Set(ctx, keySelectedVehicle, vehicleID, 0).Err()
}

func (s *RedisState) SelectedVehicle(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, keySelectedVehicle).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisState) SetTripActive(ctx context.Context, active bool) error {
	v := "0"
	if active {
		v = "1"
	}
	return s.client.Set(ctx, keyTripActive, v, 0).Err()
}

func (s *RedisState) TripActive(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, keyTripActive).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// MemoryState is the in-process fallback used in tests and redis-less runs.
type MemoryState struct {
	mu      sync.Mutex
	vehicle string
	active  bool
}

func NewMemoryState() *MemoryState { return &MemoryState{} }

func (s *MemoryState) SetSelectedVehicle(_ context.Context, vehicleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicle = vehicleID
	return nil
}

func (s *MemoryState) SelectedVehicle(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicle, nil
}

func (s *MemoryState) SetTripActive(_ context.Context, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
	return nil
}

func (s *MemoryState) TripActive(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}
