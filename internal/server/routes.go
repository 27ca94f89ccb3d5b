package server

import (
	"context"
	"github.com/clambin/opendoor/internal/target"
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
)

// A Monitor starts and stops check loops. *trigger.Trigger implements it.
type Monitor interface {
	Start(ctx context.Context, t target.Target) error
	Stop(deviceID string) bool
}

// An OwnTracksHandler processes a message posted by the OwnTracks app. *owntracks.Dispatcher implements it.
type OwnTracksHandler interface {
	Handle(ctx context.Context, payload []byte) error
}

// Handlers groups the components that serve the API. A nil OwnTracks disables the OwnTracks endpoint.
type Handlers struct {
	Health    http.Handler
	Monitor   Monitor
	Target    func() target.Target
	OwnTracks OwnTracksHandler
}

func addRoutes(r chi.Router, h Handlers, logger *slog.Logger) {
	r.Handle("/health", h.Health)
	r.Route("/monitor", func(r chi.Router) {
		r.Post("/start", handleStart(h.Monitor, h.Target, logger))
		r.Post("/stop", handleStop(h.Monitor, h.Target))
	})
	if h.OwnTracks != nil {
		r.Post("/owntracks", handleOwnTracks(h.OwnTracks, logger))
	}
}
