package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects which polling loops the tracker runs.
const (
	ModeObserver = "observer" // pull only (passenger/admin)
	ModeDriver   = "driver"   // pull + push
	ModeFleetSim = "sim"      // local fleet simulation, no remote service
)

type Config struct {
	Mode      string
	VehicleID string

	FleetBaseURL   string
	FleetAuthToken string
	RequestTimeout time.Duration

	PullInterval    time.Duration
	PushInterval    time.Duration
	DefaultSpeedKmh float64

	LoopRoute bool
	Jitter    bool

	NATSURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StatusAddr  string
	MetricsAddr string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Mode = strings.ToLower(getenvDefault("TRACKER_MODE", ModeObserver))
	switch cfg.Mode {
	case ModeObserver, ModeDriver, ModeFleetSim:
	default:
		return nil, fmt.Errorf("invalid TRACKER_MODE: %q", cfg.Mode)
	}

	cfg.VehicleID = os.Getenv("VEHICLE_ID")
	if cfg.Mode != ModeFleetSim && cfg.VehicleID == "" {
		return nil, fmt.Errorf("VEHICLE_ID must be set in %s mode", cfg.Mode)
	}

	cfg.FleetBaseURL = getenvDefault("FLEET_API_URL", "http://localhost:8080/api")
	cfg.FleetAuthToken = os.Getenv("FLEET_API_TOKEN")

	// Pull interval
	if v := os.Getenv("PULL_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid PULL_INTERVAL_MS: %q", v)
		}
		cfg.PullInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.PullInterval = 3 * time.Second
	}

	// Push interval
	if v := os.Getenv("PUSH_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid PUSH_INTERVAL_MS: %q", v)
		}
		cfg.PushInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.PushInterval = 5 * time.Second
	}

	// Request timeout, kept strictly below the pull interval so in-flight
	// requests can never stack up behind the ticker.
	if v := os.Getenv("REQUEST_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_MS: %q", v)
		}
		cfg.RequestTimeout = time.Duration(ms) * time.Millisecond
	} else {
		cfg.RequestTimeout = 2 * time.Second
	}
	if cfg.RequestTimeout >= cfg.PullInterval {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_MS (%v) must be below PULL_INTERVAL_MS (%v)", cfg.RequestTimeout, cfg.PullInterval)
	}

	// Assumed speed when a vehicle reports none
	if v := os.Getenv("DEFAULT_SPEED_KMH"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid DEFAULT_SPEED_KMH: %q", v)
		}
		cfg.DefaultSpeedKmh = f
	} else {
		cfg.DefaultSpeedKmh = 30
	}

	cfg.LoopRoute = boolEnv("SIM_LOOP_ROUTE")
	cfg.Jitter = boolEnv("SIM_JITTER")

	// Empty NATS_URL disables the event bridge.
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Empty REDIS_ADDR falls back to in-memory session state.
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid REDIS_DB: %q", v)
		}
		cfg.RedisDB = n
	}

	cfg.StatusAddr = getenvDefault("STATUS_ADDR", ":8090")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolEnv(k string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
