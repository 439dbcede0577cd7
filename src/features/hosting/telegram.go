package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/playback"
	"github.com/fatyzzz/donation-media-hub/src/features/polling"
	"github.com/fatyzzz/donation-media-hub/src/features/queue"
)

// TelegramCommandHandler is implemented by each feature that answers bot
// commands.
type TelegramCommandHandler interface {
	HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error
	GetCommands() map[string]string
}

// TelegramBot routes bot commands to feature handlers.
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	handlers []TelegramCommandHandler
	commands map[string]TelegramCommandHandler
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
}

// NewTelegramBot creates a Telegram bot wired to the queue, playback,
// polling and config features.
func NewTelegramBot(cfg *config.Manager, queueService *queue.Service, playbackService *playback.Service, pollingService *polling.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30

	telegramBot := &TelegramBot{
		bot:      bot,
		config:   cfg,
		commands: make(map[string]TelegramCommandHandler),
		updates:  bot.GetUpdatesChan(updateConfig),
		stopChan: make(chan struct{}),
	}

	telegramBot.RegisterHandler(queue.NewTelegramHandler(queueService))
	telegramBot.RegisterHandler(playback.NewTelegramHandler(playbackService))
	telegramBot.RegisterHandler(polling.NewTelegramHandler(pollingService))
	telegramBot.RegisterHandler(config.NewTelegramHandler(cfg))

	return telegramBot, nil
}

// Bot exposes the underlying bot connection so the notifier can share it.
func (t *TelegramBot) Bot() *tgbotapi.BotAPI {
	return t.bot
}

// RegisterHandler registers a feature's command handler and indexes its
// commands.
func (t *TelegramBot) RegisterHandler(handler TelegramCommandHandler) {
	t.handlers = append(t.handlers, handler)
	for command := range handler.GetCommands() {
		t.commands[command] = handler
	}
}

// Start begins listening for Telegram updates.
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			return
		}
	}
}

// Stop gracefully stops the bot.
func (t *TelegramBot) Stop() {
	close(t.stopChan)
}

// handleMessage processes incoming messages.
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	allowedUsers := t.config.Get().Telegram.AllowedUsers
	if len(allowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: No users configured. Please add users to the config.")
		return
	}

	username := message.From.UserName
	if username == "" {
		username = message.From.FirstName
		if message.From.LastName != "" {
			username += " " + message.From.LastName
		}
	}
	if !slices.Contains(allowedUsers, username) {
		slog.Warn("Unauthorized user", "username", username, "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	if message.IsCommand() {
		t.handleCommand(update)
		return
	}

	t.sendMessage(chatID, "🤖 Send /help to see available commands")
}

// handleCommand processes bot commands.
func (t *TelegramBot) handleCommand(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID
	command := message.Command()
	args := message.CommandArguments()

	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
		return
	}

	handler, exists := t.commands[command]
	if !exists {
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
		return
	}
	if err := handler.HandleCommand(t.bot, chatID, command, args); err != nil {
		slog.Error("Failed to handle command", "command", command, "error", err)
		t.sendMessage(chatID, "❌ Failed to process command")
	}
}

// handleHelp lists every registered command.
func (t *TelegramBot) handleHelp(chatID int64) {
	var b strings.Builder
	b.WriteString("*🤖 Donation Media Hub*\n\n")

	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "/%s - %s\n", name, t.commands[name].GetCommands()[name])
	}

	msg := tgbotapi.NewMessage(chatID, b.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send help", "error", err, "chat_id", chatID)
	}
}

// sendMessage sends a message to the specified chat.
func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}
