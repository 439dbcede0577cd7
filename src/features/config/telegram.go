package config

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler answers configuration commands. Tokens are redacted
// before anything leaves the process.
type TelegramHandler struct {
	configManager *Manager
}

// NewTelegramHandler creates a Telegram handler for configuration.
func NewTelegramHandler(configManager *Manager) *TelegramHandler {
	return &TelegramHandler{configManager: configManager}
}

// GetCommands returns the commands this feature answers.
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"config": "Show current configuration (add 'json' for JSON)",
	}
}

// HandleCommand processes configuration commands.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	if command != "config" {
		return nil
	}

	format, body := "yaml", h.configManager.GetYAML()
	if args == "json" {
		format, body = "json", h.configManager.GetJSON()
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚙️ *Configuration*\n\n```%s\n%s\n```", format, body))
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := bot.Send(msg)
	return err
}
