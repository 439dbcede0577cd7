package playback

import (
	"github.com/gofiber/fiber/v2"
)

// Handler serves the playback transport API.
type Handler struct {
	service *Service
}

// NewHandler creates a playback handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatus returns the player state.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// Play starts or resumes playback.
func (h *Handler) Play(c *fiber.Ctx) error {
	return h.transport(c, h.service.Play)
}

// Pause suspends playback.
func (h *Handler) Pause(c *fiber.Ctx) error {
	return h.transport(c, h.service.Pause)
}

// Resume continues paused playback.
func (h *Handler) Resume(c *fiber.Ctx) error {
	return h.transport(c, h.service.Resume)
}

// Stop ends playback without advancing the queue.
func (h *Handler) Stop(c *fiber.Ctx) error {
	return h.transport(c, h.service.Stop)
}

func (h *Handler) transport(c *fiber.Ctx, op func() error) error {
	if err := op(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(h.service.Status())
}
