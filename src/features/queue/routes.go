package queue

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the queue routes with the Fiber app.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/queue", handler.GetQueue)
	app.Post("/queue", handler.Enqueue)
	app.Post("/queue/next", handler.Next)
	app.Post("/queue/prev", handler.Prev)
	app.Post("/queue/skip", handler.Skip)
	app.Post("/queue/clear", handler.Clear)
	app.Post("/queue/jump-start", handler.JumpToStart)
}
