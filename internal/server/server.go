// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"campusevents/internal/config"
	"campusevents/internal/domain/discussion"
	"campusevents/internal/domain/realtime"
	"campusevents/internal/server/handlers"
	discussionService "campusevents/internal/service/discussion"
	"campusevents/internal/service/explore"
	"campusevents/internal/service/normalize"
	"campusevents/internal/service/trending"
)

// Dependencies are the services the HTTP server exposes
type Dependencies struct {
	Catalog         *explore.Catalog
	Trending        *trending.Aggregator
	Discussion      discussion.Store
	Broker          realtime.Broker
	Normalizer      *normalize.Normalizer
	Controller      explore.ControllerConfig
	DiscussionLimit int
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	eventHandler := handlers.NewEventHandler(deps.Catalog, deps.Trending)
	discussionHandler := handlers.NewDiscussionHandler(deps.Discussion, deps.DiscussionLimit)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.ListEvents)
				r.Post("/", eventHandler.SubmitEvent)
				r.Get("/upcoming", eventHandler.UpcomingEvents)
				r.Get("/trending", eventHandler.TrendingEvents)
				r.Get("/{id}", eventHandler.GetEvent)
				r.Post("/{id}/join", eventHandler.JoinEvent)
				r.Get("/{id}/discussion", discussionHandler.ListDiscussion)
			})
		})
	})

	// WebSocket endpoints for live views
	router.Get("/ws/explore", handlers.ExploreWebSocketHandler(func() *explore.Controller {
		return explore.NewController(deps.Catalog, deps.Broker, deps.Controller)
	}))
	router.Get("/ws/events/{id}/discussion", handlers.DiscussionWebSocketHandler(func(eventID string) *discussionService.Feed {
		return discussionService.NewFeed(deps.Discussion, deps.Broker, deps.Normalizer, eventID, deps.DiscussionLimit)
	}))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
