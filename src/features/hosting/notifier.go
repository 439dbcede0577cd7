package hosting

import (
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
)

const notifierName = "telegram"

// MessageSender is the slice of the bot API the notifier needs.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// QueueReader looks up track details for announcements.
type QueueReader interface {
	Snapshot() (donation.QueueSnapshot, error)
}

// Subscriber provides notification channels from the event bus.
type Subscriber interface {
	Subscribe(name string) <-chan donation.Event
	Unsubscribe(name string)
}

// TelegramNotifier pushes queue and source announcements to the configured
// chat: a track becoming ready to play, a poller flipping health. It is
// silent when no notify chat is configured.
type TelegramNotifier struct {
	config *config.Manager
	sender MessageSender
	queue  QueueReader
	bus    Subscriber

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTelegramNotifier creates a notifier over the given bot connection.
func NewTelegramNotifier(cfg *config.Manager, sender MessageSender, queue QueueReader, bus Subscriber) *TelegramNotifier {
	return &TelegramNotifier{
		config:   cfg,
		sender:   sender,
		queue:    queue,
		bus:      bus,
		stopChan: make(chan struct{}),
	}
}

// Start subscribes to bus notifications and begins announcing.
func (n *TelegramNotifier) Start() {
	events := n.bus.Subscribe(notifierName)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for {
			select {
			case e, ok := <-events:
				if !ok {
					return
				}
				n.handleEvent(e)
			case <-n.stopChan:
				return
			}
		}
	}()
}

// Stop unsubscribes and waits for the announcement loop to finish.
func (n *TelegramNotifier) Stop() {
	n.stopOnce.Do(func() { close(n.stopChan) })
	n.bus.Unsubscribe(notifierName)
	n.wg.Wait()
}

func (n *TelegramNotifier) handleEvent(e donation.Event) {
	chatID := n.config.Get().Telegram.NotifyChatID
	if chatID == 0 {
		return
	}

	switch ev := e.(type) {
	case donation.TrackStatusChanged:
		if ev.Status != donation.StatusReady {
			return
		}
		n.announceReady(chatID, ev.TrackID)
	case donation.SourceStateChanged:
		n.announceSourceState(chatID, ev)
	}
}

func (n *TelegramNotifier) announceReady(chatID int64, trackID string) {
	snapshot, err := n.queue.Snapshot()
	if err != nil {
		slog.Warn("Failed to snapshot queue for announcement", "error", err)
		return
	}
	track := snapshot.Track(trackID)
	if track == nil {
		return
	}

	text := fmt.Sprintf("🎵 *%s* is ready to play", track.Title)
	if track.DonatedBy != "" {
		text += fmt.Sprintf(" (donated by %s)", track.DonatedBy)
	}
	n.send(chatID, text)
}

func (n *TelegramNotifier) announceSourceState(chatID int64, ev donation.SourceStateChanged) {
	var text string
	if ev.Healthy {
		text = fmt.Sprintf("✅ Source `%s` recovered", ev.SourceID)
	} else {
		text = fmt.Sprintf("❌ Source `%s` is unhealthy", ev.SourceID)
		if ev.Message != "" {
			text += ": " + ev.Message
		}
	}
	n.send(chatID, text)
}

func (n *TelegramNotifier) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.sender.Send(msg); err != nil {
		slog.Error("Failed to send announcement", "error", err, "chat_id", chatID)
	}
}
