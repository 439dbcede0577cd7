package playback

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the playback routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/playback", handler.GetStatus)
	app.Post("/playback/play", handler.Play)
	app.Post("/playback/pause", handler.Pause)
	app.Post("/playback/resume", handler.Resume)
	app.Post("/playback/stop", handler.Stop)
}
