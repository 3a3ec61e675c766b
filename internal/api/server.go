package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/watchtrack/internal/api/handlers"
	"github.com/amaumene/watchtrack/internal/api/middleware"
	"github.com/amaumene/watchtrack/internal/config"
	"github.com/amaumene/watchtrack/internal/controllers"
)

// Server represents the HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, records *controllers.RecordsController, store handlers.Pinger, logger *logrus.Logger) *Server {
	s := &Server{
		addr:   ":" + cfg.ServerPort,
		logger: logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "watchtrack",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          ErrorHandler(logger),
	})

	// Metrics wraps Logging so it observes the status the error handler set
	s.app.Use(middleware.Metrics())
	s.app.Use(middleware.Logging(logger))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	s.setupRoutes(records, store)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(records *controllers.RecordsController, store handlers.Pinger) {
	health := handlers.NewHealthHandler(store, s.logger)
	s.app.Get("/health", health.Health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	rh := handlers.NewRecordsHandler(records, s.logger)
	r := s.app.Group("/records")
	// Fixed paths are registered before /:id so they are not taken as ids
	r.Get("/status/:status", rh.ByStatus)
	r.Get("/rating/range", rh.ByRatingRange)
	r.Get("/search", rh.Search)
	r.Get("/suggest", rh.Suggest)
	r.Get("/sorted", rh.Sorted)
	r.Post("/", rh.Create)
	r.Get("/", rh.List)
	r.Get("/:id", rh.Get)
	r.Put("/:id", rh.Replace)
	r.Patch("/:id", rh.Patch)
	r.Delete("/:id", rh.Delete)
	r.Put("/:id/watch", rh.MarkWatched)
	r.Put("/:id/rewatch", rh.IncrementRewatch)

	sh := handlers.NewStatsHandler(records, s.logger)
	st := s.app.Group("/stats")
	st.Get("/average-rating", sh.AverageRating)
	st.Get("/count-by-status", sh.CountByStatus)
	st.Get("/top-rated", sh.TopRated)
	st.Get("/recently-watched", sh.RecentlyWatched)
}

// App exposes the fiber application, used by tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
