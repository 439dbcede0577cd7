package resolving

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the resolving routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/downloads", handler.GetDownloads)
}
