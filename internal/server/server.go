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
	"github.com/nats-io/nats.go"

	"creatorpulse/internal/config"
	"creatorpulse/internal/domain/trend"
	"creatorpulse/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	detector trend.Detector,
	ingestor handlers.Ingestor,
	natsConn *nats.Conn,
	eventsTopic string,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	trendHandler := handlers.NewTrendHandler(detector)
	contentHandler := handlers.NewContentHandler(ingestor)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Per-tenant operations
			r.Route("/tenants/{tenant}", func(r chi.Router) {
				r.Post("/content", contentHandler.IngestContent)

				r.Route("/trends", func(r chi.Router) {
					r.Post("/detect", trendHandler.DetectTrends)
					r.Get("/", trendHandler.GetActiveTrends)
					r.Get("/history", trendHandler.GetTrendHistory)
					r.Get("/summary", trendHandler.GetTrendSummary)
				})
			})

			// Trend lookup by ID
			r.Route("/trends", func(r chi.Router) {
				r.Get("/{id}", trendHandler.GetTrend)
				r.Delete("/{id}", trendHandler.DeleteTrend)
			})
		})
	})

	// WebSocket endpoint for live trend events
	router.Get("/ws/tenants/{tenant}/trends", handlers.TrendStreamHandler(natsConn, eventsTopic))

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

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
