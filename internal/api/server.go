package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"bus-tracker/internal/session"
	"bus-tracker/internal/store"
	"bus-tracker/internal/trip"
	"bus-tracker/internal/views"
)

// Server exposes the read-only status views over HTTP: the admin live table,
// trip progress and the next-stop ETA. It never mutates tracking state.
type Server struct {
	app          *fiber.App
	positions    *store.PositionStore
	trips        *trip.Machine
	sessions     session.State
	defaultSpeed float64
}

type tripResponse struct {
	Status   string                `json:"status"`
	Route    string                `json:"route,omitempty"`
	Progress []views.ProgressEntry `json:"progress"`
	ETA      *views.ETAView        `json:"eta,omitempty"`
}

func NewServer(positions *store.PositionStore, trips *trip.Machine, sessions session.State, defaultSpeedKmh float64) *Server {
	s := &Server{
		app:          fiber.New(fiber.Config{DisableStartupMessage: true}),
		positions:    positions,
		trips:        trips,
		sessions:     sessions,
		defaultSpeed: defaultSpeedKmh,
	}
	s.app.Get("/status/vehicles", s.handleVehicles)
	s.app.Get("/status/trip", s.handleTrip)
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("Status API listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) handleVehicles(c *fiber.Ctx) error {
	return c.JSON(views.FleetTable(s.positions.List()))
}

func (s *Server) handleTrip(c *fiber.Ctx) error {
	snap := s.trips.Snapshot()
	resp := tripResponse{
		Status:   snap.Status.String(),
		Route:    snap.Route.Name,
		Progress: views.ProgressList(snap),
	}

	vehicleID := c.Query("vehicle")
	if vehicleID == "" && s.sessions != nil {
		selected, err := s.sessions.SelectedVehicle(c.Context())
		if err != nil {
			log.Warn().Err(err).Msg("Could not read selected vehicle from session state")
		} else {
			vehicleID = selected
		}
	}
	if pos, ok := s.positions.Get(vehicleID); ok {
		if eta, ok := views.NextStopETA(pos, snap, s.defaultSpeed); ok {
			resp.ETA = &eta
		}
	}
	return c.JSON(resp)
}
