package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

type updateSourceRequest struct {
	Source string `json:"source"` // "donationalerts" or "donatex"
	Token  string `json:"token"`
}

// UpdateSource sets the token for one donation source at runtime.
// Pollers pick the new token up on their next cycle.
func (h *Handler) UpdateSource(c *fiber.Ctx) error {
	var req updateSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	newConfig := *h.configManager.Get()
	switch req.Source {
	case "donationalerts":
		newConfig.Sources.DonationAlerts.Token = req.Token
	case "donatex":
		newConfig.Sources.DonateX.Token = req.Token
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown source: " + req.Source})
	}

	h.configManager.Update(&newConfig)
	slog.Info("Source token updated", "source", req.Source)

	// Try to save to file (optional - may fail in containerized environments)
	if err := h.configManager.Save("config.yaml"); err != nil {
		slog.Warn("failed to save config to file (this is normal in containerized environments)", "error", err)
	}

	return c.JSON(fiber.Map{"status": "ok", "source": req.Source})
}

// GetConfig returns the current configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	slog.Debug("GetConfig handler called", "format", c.Query("fmt", "json"))
	format := c.Query("fmt", "yaml")

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Invalid format. Use 'json' or 'yaml'")
	}
}

// DownloadDatabase serves the database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	slog.Debug("DownloadDatabase handler called")

	config := h.configManager.Get()
	dbPath := config.Database.Path

	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Database path not configured")
	}

	// Extract filename from path for download
	filename := filepath.Base(dbPath)

	// Set headers for file download
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Set("Content-Type", "application/octet-stream")

	// Send the file
	return c.SendFile(dbPath)
}
