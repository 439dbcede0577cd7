package resolving

import (
	"github.com/gofiber/fiber/v2"
)

// Handler serves download pipeline status.
type Handler struct {
	service *Service
}

// NewHandler creates a resolving handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetDownloads returns the in-flight resolutions and the pool capacity.
func (h *Handler) GetDownloads(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active":         h.service.Active(),
		"max_concurrent": h.service.configManager.Get().Downloads.MaxConcurrent,
	})
}
