package queue

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fatyzzz/donation-media-hub/src/donation"
)

// TelegramHandler handles Telegram commands for the queue.
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a Telegram handler for the queue.
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// GetCommands returns the commands this feature answers.
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"queue":      "Show the playback queue",
		"skip":       "Skip the current track",
		"nowplaying": "Show the current track",
	}
}

// HandleCommand processes Telegram commands for the queue.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "queue":
		return h.sendQueue(bot, chatID)
	case "skip":
		return h.sendSkip(bot, chatID)
	case "nowplaying":
		return h.sendNowPlaying(bot, chatID)
	}
	return nil
}

func (h *TelegramHandler) sendQueue(bot *tgbotapi.BotAPI, chatID int64) error {
	snapshot, err := h.service.Snapshot()
	if err != nil {
		return err
	}
	if len(snapshot.Tracks) == 0 {
		_, err := bot.Send(tgbotapi.NewMessage(chatID, "The queue is empty."))
		return err
	}

	var b strings.Builder
	b.WriteString("🎵 *Queue*\n")
	for i, t := range snapshot.Tracks {
		marker := "  "
		if i == snapshot.CurrentIndex {
			marker = "▶️"
		}
		fmt.Fprintf(&b, "%s %d. %s (%s)", marker, i+1, escapeMarkdown(displayTitle(t)), statusIcon(t.Status))
		if t.DonatedBy != "" {
			fmt.Fprintf(&b, " - %s", escapeMarkdown(t.DonatedBy))
		}
		b.WriteString("\n")
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = bot.Send(msg)
	return err
}

func (h *TelegramHandler) sendSkip(bot *tgbotapi.BotAPI, chatID int64) error {
	moved, err := h.service.Skip()
	if err != nil {
		return err
	}
	text := "⏭ Skipped, nothing next in the queue."
	if moved {
		if snapshot, err := h.service.Snapshot(); err == nil {
			if current := snapshot.Current(); current != nil {
				text = fmt.Sprintf("⏭ Skipped. Up next: %s", displayTitle(current))
			}
		}
	}
	_, err = bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (h *TelegramHandler) sendNowPlaying(bot *tgbotapi.BotAPI, chatID int64) error {
	snapshot, err := h.service.Snapshot()
	if err != nil {
		return err
	}
	current := snapshot.Current()
	if current == nil {
		_, err := bot.Send(tgbotapi.NewMessage(chatID, "Nothing is queued right now."))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s*\n", statusIcon(current.Status), escapeMarkdown(displayTitle(current)))
	if current.DonatedBy != "" {
		fmt.Fprintf(&b, "Donated by %s", escapeMarkdown(current.DonatedBy))
		if current.Amount > 0 {
			fmt.Fprintf(&b, " (%.2f %s)", current.Amount, current.Currency)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Status: %s", current.Status)

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err = bot.Send(msg)
	return err
}

func displayTitle(t *donation.Track) string {
	if t.Title != "" {
		return t.Title
	}
	return t.MediaRef
}

func statusIcon(status donation.TrackStatus) string {
	switch status {
	case donation.StatusPending:
		return "⏳"
	case donation.StatusDownloading:
		return "⬇️"
	case donation.StatusReady:
		return "✅"
	case donation.StatusPlaying:
		return "▶️"
	case donation.StatusPlayed:
		return "☑️"
	case donation.StatusFailed:
		return "❌"
	}
	return "❔"
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return replacer.Replace(s)
}
