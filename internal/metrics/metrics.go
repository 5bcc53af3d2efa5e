package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveTasks     prometheus.Gauge
	TrackedVehicles prometheus.Gauge

	PullsTotal      prometheus.Counter
	PullErrsTotal   prometheus.Counter
	PushesTotal     prometheus.Counter
	PushErrsTotal   prometheus.Counter
	UpdatesRejected *prometheus.CounterVec // reason label: invalid|stale

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	PullInterval prometheus.Gauge // seconds
	PushInterval prometheus.Gauge // seconds
}

func NewCollector(pullInterval, pushInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_active_tasks",
			Help: "Number of currently running poll tasks.",
		}),
		TrackedVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_tracked_vehicles",
			Help: "Number of vehicles with a stored position.",
		}),
		PullsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_pulls_total",
			Help: "Total successful location pulls from the fleet service.",
		}),
		PullErrsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_pull_errors_total",
			Help: "Total failed location pulls.",
		}),
		PushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_pushes_total",
			Help: "Total driver positions pushed to the fleet service.",
		}),
		PushErrsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_push_errors_total",
			Help: "Total failed position pushes.",
		}),
		UpdatesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_updates_rejected_total",
			Help: "Position updates rejected by the store.",
		}, []string{"reason"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_tick_duration_seconds",
			Help:    "Duration of a single poll tick including network time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PullInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_pull_interval_seconds",
			Help: "Location pull interval in seconds.",
		}),
		PushInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_push_interval_seconds",
			Help: "Driver push interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.ActiveTasks, c.TrackedVehicles,
		c.PullsTotal, c.PullErrsTotal, c.PushesTotal, c.PushErrsTotal,
		c.UpdatesRejected,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.TickDuration, c.PublishDuration,
		c.PullInterval, c.PushInterval,
	)

	c.PullInterval.Set(pullInterval.Seconds())
	c.PushInterval.Set(pushInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("Metrics listening")
	return srv
}
