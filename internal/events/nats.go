package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"bus-tracker/internal/store"
	"bus-tracker/internal/transit"
)

// PublisherMetrics decouples the bridge from the concrete metrics collector.
type PublisherMetrics interface {
	PublishedInc()
	PublishErrInc()
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

// Bridge broadcasts accepted position updates over NATS so other tracker
// instances and downstream consumers can mirror the local store.
type Bridge struct {
	nc      *nats.Conn
	metrics PublisherMetrics
}

func NewBridge(url string, m PublisherMetrics) (*Bridge, error) {
	nc, err := nats.Connect(url,
		nats.Name("bus-tracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Warn().Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			log.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			log.Info().Msg("NATS closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SetConnected(true)
	}
	return &Bridge{nc: nc, metrics: m}, nil
}

func (b *Bridge) Close() {
	if b.nc != nil {
		b.nc.Drain()
		b.nc.Close()
	}
}

// BindStore subscribes the bridge to a position store; every accepted update
// is published. Returns the unsubscribe function.
func (b *Bridge) BindStore(s *store.PositionStore) func() {
	return s.Subscribe(func(p transit.VehiclePosition) {
		if err := b.PublishPosition(p); err != nil {
			log.Error().Err(err).Str("vehicle", p.VehicleID).Msg("Failed to publish position event")
		}
	})
}

// PublishPosition sends one position update on positions.<vehicle>.
func (b *Bridge) PublishPosition(p transit.VehiclePosition) error {
	subject := fmt.Sprintf("positions.%s", subjectToken(p.VehicleID))
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	start := time.Now()
	err = b.nc.Publish(subject, payload)
	if b.metrics != nil {
		b.metrics.PublishObserve(time.Since(start))
		if err != nil {
			b.metrics.PublishErrInc()
		} else {
			b.metrics.PublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
