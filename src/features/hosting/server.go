package hosting

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
	"github.com/fatyzzz/donation-media-hub/src/features/playback"
	"github.com/fatyzzz/donation-media-hub/src/features/polling"
	"github.com/fatyzzz/donation-media-hub/src/features/queue"
	"github.com/fatyzzz/donation-media-hub/src/features/resolving"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates the JSON API server and registers every feature's routes.
func NewServer(cfg *config.Manager, pollingService *polling.Service, resolvingService *resolving.Service, queueService *queue.Service, playbackService *playback.Service, metricsHandler *metrics.Handler) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			slog.Error("HTTP handler error", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Donation Media Hub",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(recover.New())
	app.Use(LogRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	config.RegisterRoutes(app, cfg)
	polling.RegisterRoutes(app, pollingService)
	resolving.RegisterRoutes(app, resolvingService)
	queue.RegisterRoutes(app, queueService)
	playback.RegisterRoutes(app, playbackService)
	metrics.RegisterRoutes(app, metricsHandler)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
