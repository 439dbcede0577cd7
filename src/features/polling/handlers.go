package polling

import (
	"github.com/gofiber/fiber/v2"
)

// Handler serves source status queries.
type Handler struct {
	service *Service
}

// NewHandler creates a polling handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetSources returns the health of every donation source.
func (h *Handler) GetSources(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sources": h.service.Statuses()})
}
