package polling

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the polling routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/sources", handler.GetSources)
}
