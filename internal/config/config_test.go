package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRACKER_MODE", "")
	t.Setenv("VEHICLE_ID", "V1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeObserver, cfg.Mode)
	assert.Equal(t, 3*time.Second, cfg.PullInterval)
	assert.Equal(t, 5*time.Second, cfg.PushInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30.0, cfg.DefaultSpeedKmh)
	assert.Equal(t, "http://localhost:8080/api", cfg.FleetBaseURL)
	assert.Equal(t, ":8090", cfg.StatusAddr)
	assert.False(t, cfg.LoopRoute)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRACKER_MODE", "driver")
	t.Setenv("VEHICLE_ID", "V7")
	t.Setenv("PULL_INTERVAL_MS", "2000")
	t.Setenv("PUSH_INTERVAL_MS", "4000")
	t.Setenv("REQUEST_TIMEOUT_MS", "500")
	t.Setenv("DEFAULT_SPEED_KMH", "25")
	t.Setenv("SIM_LOOP_ROUTE", "yes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeDriver, cfg.Mode)
	assert.Equal(t, "V7", cfg.VehicleID)
	assert.Equal(t, 2*time.Second, cfg.PullInterval)
	assert.Equal(t, 4*time.Second, cfg.PushInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 25.0, cfg.DefaultSpeedKmh)
	assert.True(t, cfg.LoopRoute)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		k, v string
	}{
		{"bad mode", "TRACKER_MODE", "pilot"},
		{"bad pull interval", "PULL_INTERVAL_MS", "soon"},
		{"negative pull interval", "PULL_INTERVAL_MS", "-5"},
		{"bad speed", "DEFAULT_SPEED_KMH", "fast"},
		{"zero speed", "DEFAULT_SPEED_KMH", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("VEHICLE_ID", "V1")
			t.Setenv(tc.k, tc.v)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresVehicleID(t *testing.T) {
	t.Setenv("TRACKER_MODE", "driver")
	t.Setenv("VEHICLE_ID", "")
	_, err := Load()
	require.Error(t, err)

	// Fleet simulation needs no tracked vehicle.
	t.Setenv("TRACKER_MODE", "sim")
	_, err = Load()
	assert.NoError(t, err)
}

func TestTimeoutMustStayBelowPullInterval(t *testing.T) {
	t.Setenv("VEHICLE_ID", "V1")
	t.Setenv("PULL_INTERVAL_MS", "1000")
	t.Setenv("REQUEST_TIMEOUT_MS", "1000")
	_, err := Load()
	assert.Error(t, err)
}
