package playback

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramHandler handles Telegram playback transport commands.
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a Telegram handler for playback.
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// GetCommands returns the commands this feature answers.
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"play":  "Start or resume playback",
		"pause": "Pause playback",
		"stop":  "Stop playback",
	}
}

// HandleCommand processes Telegram commands for playback.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	var err error
	var text string
	switch command {
	case "play":
		err = h.service.Play()
		text = "▶️ Playing."
	case "pause":
		err = h.service.Pause()
		text = "⏸ Paused."
	case "stop":
		err = h.service.Stop()
		text = "⏹ Stopped."
	default:
		return nil
	}
	if err != nil {
		text = fmt.Sprintf("⚠️ %s failed: %v", command, err)
	}
	_, sendErr := bot.Send(tgbotapi.NewMessage(chatID, text))
	return sendErr
}
