package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/timeshift/internal/runservice"
)

// Register mounts the health probes, the form endpoint and the /api routes on r.
// Health probes are never authenticated. sseHandler, if non-nil, is served at
// GET /api/events behind the same auth as the rest of /api.
func Register(r chi.Router, svc *runservice.Service, authEnabled bool, token string, sseHandler http.Handler) {
	h := NewHandler(svc)

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		r.Post("/run_script", h.RunScript)

		r.Route("/api", func(r chi.Router) {
			r.Post("/adjust", h.Adjust)
			r.Get("/properties", h.Properties)
			r.Get("/presets", h.Presets)
			r.Get("/runs", h.Runs)
			if sseHandler != nil {
				r.Get("/events", sseHandler.ServeHTTP)
			}
		})
	})
}

// NewRouter creates a chi router with every route registered.
func NewRouter(svc *runservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	Register(r, svc, authEnabled, token, sseHandler)
	return r
}
