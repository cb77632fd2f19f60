package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/clientdir/internal/config"
	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/web/handlers"
	"github.com/saltyorg/clientdir/internal/web/middleware"
)

// Server represents the HTTP API server
type Server struct {
	addr      string
	tokenHash string
	timeouts  *config.TimeoutConfig
	router    *chi.Mux
	hub       *events.Hub
	handlers  *handlers.Handlers
}

// NewServer creates a new API server. hub may be nil, in which case no event
// feed is mounted.
func NewServer(dir handlers.Directory, hub *events.Hub, cfg config.HTTPConfig, timeouts *config.TimeoutConfig) *Server {
	if timeouts == nil {
		timeouts = config.DefaultTimeoutConfig()
	}
	s := &Server{
		addr:      cfg.Addr,
		tokenHash: cfg.TokenHash,
		timeouts:  timeouts,
		router:    chi.NewRouter(),
		hub:       hub,
		handlers:  handlers.New(dir),
	}

	s.setupRoutes()
	return s
}

// SetMaintenance reports the scheduler's state on /health
func (s *Server) SetMaintenance(m handlers.MaintenanceReporter) {
	s.handlers.SetMaintenance(m)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	// Timeout is applied per-group so the websocket feed can stay open

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.TokenAuth(s.tokenHash))

		if s.hub != nil {
			r.Get("/events", s.hub.ServeHTTP)
		}

		r.Route("/clients", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(s.timeouts.Request))

			r.Get("/", h.ListClients)
			r.Post("/", h.CreateClient)
			r.Get("/search", h.FindClients)
			r.Get("/{id}", h.GetClient)
			r.Patch("/{id}", h.UpdateClient)
			r.Delete("/{id}", h.DeleteClient)
			r.Post("/{id}/phones", h.AddPhone)
			r.Delete("/{id}/phones/{phone}", h.DeletePhone)
		})
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: s.timeouts.HTTPRead,
		// WriteTimeout disabled (0) for the websocket feed; the per-group
		// chi timeout bounds regular requests
		WriteTimeout: 0,
		IdleTimeout:  s.timeouts.HTTPIdle,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		// Close websocket clients first so Shutdown does not wait on them
		if s.hub != nil {
			s.hub.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
