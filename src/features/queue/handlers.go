package queue

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

// ManualSourceID marks tracks enqueued through the API rather than a poller.
const ManualSourceID = "manual"

// Handler serves queue queries and transport-style mutations.
type Handler struct {
	service *Service
}

// NewHandler creates a queue handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type trackRecord struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	MediaRef  string  `json:"mediaRef"`
	Source    string  `json:"source"`
	DonatedBy string  `json:"donatedBy,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Status    string  `json:"status"`
	Position  int     `json:"position"`
	Current   bool    `json:"current"`
	Error     string  `json:"error,omitempty"`
}

func snapshotResponse(snapshot donation.QueueSnapshot) fiber.Map {
	records := make([]trackRecord, 0, len(snapshot.Tracks))
	for i, t := range snapshot.Tracks {
		records = append(records, trackRecord{
			ID:        t.ID,
			Title:     t.Title,
			MediaRef:  t.MediaRef,
			Source:    t.SourceID,
			DonatedBy: t.DonatedBy,
			Amount:    t.Amount,
			Currency:  t.Currency,
			Status:    string(t.Status),
			Position:  t.Position,
			Current:   i == snapshot.CurrentIndex,
			Error:     t.Error,
		})
	}
	return fiber.Map{
		"tracks":       records,
		"currentIndex": snapshot.CurrentIndex,
		"length":       len(records),
	}
}

// GetQueue returns the current queue snapshot.
func (h *Handler) GetQueue(c *fiber.Ctx) error {
	snapshot, err := h.service.Snapshot()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(snapshotResponse(snapshot))
}

type enqueueRequest struct {
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	DonatedBy string  `json:"donatedBy"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

// Enqueue adds a track from a manual request.
func (h *Handler) Enqueue(c *fiber.Ctx) error {
	var req enqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	event := donation.DonationEvent{
		SourceID:   ManualSourceID,
		ExternalID: uuid.NewString(),
		MediaRef:   strings.TrimSpace(req.URL),
		Title:      strings.TrimSpace(req.Title),
		DonatedBy:  strings.TrimSpace(req.DonatedBy),
		Amount:     req.Amount,
		Currency:   req.Currency,
		ReceivedAt: time.Now(),
	}
	id, err := h.service.Enqueue(event)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Next advances to the next playable track.
func (h *Handler) Next(c *fiber.Ctx) error {
	return h.moved(c, donation.Next)
}

// Prev moves back to the previous playable track.
func (h *Handler) Prev(c *fiber.Ctx) error {
	return h.moved(c, donation.Prev)
}

func (h *Handler) moved(c *fiber.Ctx, dir donation.Direction) error {
	moved, err := h.service.Advance(dir)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"moved": moved, "direction": dir.String()})
}

// Skip marks the current track played and advances.
func (h *Handler) Skip(c *fiber.Ctx) error {
	moved, err := h.service.Skip()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"moved": moved})
}

// Clear empties the queue except for the playing track.
func (h *Handler) Clear(c *fiber.Ctx) error {
	removed, err := h.service.Clear()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"removed": removed})
}

// JumpToStart moves the current index to the head of the queue.
func (h *Handler) JumpToStart(c *fiber.Ctx) error {
	moved, err := h.service.JumpToStart()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"moved": moved})
}
