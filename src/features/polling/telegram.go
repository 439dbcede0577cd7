package polling

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram commands for source health.
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a Telegram handler for polling.
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// GetCommands returns the commands this feature answers.
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"sources": "Show donation source health",
	}
}

// HandleCommand processes Telegram commands for polling.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	if command != "sources" {
		return nil
	}

	statuses := h.service.Statuses()
	if len(statuses) == 0 {
		msg := tgbotapi.NewMessage(chatID, "No donation sources registered.")
		_, err := bot.Send(msg)
		return err
	}

	var b strings.Builder
	b.WriteString("📡 *Donation sources*\n")
	for _, st := range statuses {
		icon := "✅"
		switch {
		case !st.Enabled:
			icon = "⏸"
		case !st.Healthy:
			icon = "❌"
		}
		fmt.Fprintf(&b, "%s `%s` - accepted %d", icon, st.ID, st.EventsAccepted)
		if st.LastError != "" {
			fmt.Fprintf(&b, " (last error: %s)", st.LastError)
		}
		b.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}
