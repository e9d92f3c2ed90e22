package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewRouter mounts every engine endpoint.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(LoggerMiddleware(logger), middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/listings", h.SearchListings)
		r.Post("/listings/curated", h.CuratedListings)
		r.Get("/listings/mls/{number}", h.GetListingByNumber)
		r.Get("/listings/{id}", h.GetListing)
		r.Get("/open-houses", h.OpenHouses)
		r.Get("/agents/{agentID}/portfolio", h.AgentPortfolio)
		r.Get("/routing", h.Routing)
		r.Get("/facets/{facet}", h.Facet)
	})
	return r
}

func NewServer(port string, h *Handler, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(h, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting REST server", "address", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST server")
	return s.httpServer.Shutdown(ctx)
}
