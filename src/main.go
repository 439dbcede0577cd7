package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatyzzz/donation-media-hub/src/donation"
	"github.com/fatyzzz/donation-media-hub/src/features/config"
	"github.com/fatyzzz/donation-media-hub/src/features/hosting"
	"github.com/fatyzzz/donation-media-hub/src/features/logging"
	"github.com/fatyzzz/donation-media-hub/src/features/metrics"
	"github.com/fatyzzz/donation-media-hub/src/features/playback"
	"github.com/fatyzzz/donation-media-hub/src/features/polling"
	"github.com/fatyzzz/donation-media-hub/src/features/queue"
	"github.com/fatyzzz/donation-media-hub/src/features/resolving"
	"github.com/fatyzzz/donation-media-hub/src/infra/artwork"
	"github.com/fatyzzz/donation-media-hub/src/infra/bus"
	"github.com/fatyzzz/donation-media-hub/src/infra/database"
	"github.com/fatyzzz/donation-media-hub/src/infra/media"
	"github.com/fatyzzz/donation-media-hub/src/infra/player"
	"github.com/fatyzzz/donation-media-hub/src/infra/sources"
	"github.com/fatyzzz/donation-media-hub/src/infra/tag"
	"github.com/fatyzzz/donation-media-hub/src/infra/watcher"
)

const configPath = "config.yaml"

func main() {
	// Load configuration
	cfgManager, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Open the state store and restore the previous run's state
	store, err := database.NewSqliteStore(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to open state store: %v", err)
	}
	state, err := store.Load(context.Background())
	if err != nil {
		log.Fatalf("failed to load persisted state: %v", err)
	}
	restoreCredentials(cfgManager, state)

	// Event bus between pollers, downloader and the queue manager
	eventBus := bus.New(cfgManager.Get().Queue.BusCapacity)
	go eventBus.Run()

	collectors := metrics.NewCollectors()

	// Resolution pipeline: converter, oEmbed titles, cover art, tags
	cfg := cfgManager.Get()
	converter := media.NewConverter(func() string {
		return cfgManager.Get().Downloads.ConvertURL
	}, cfg.MediaPath, nil)
	oembed := media.NewOEmbedClient(nil)
	artworkService := artwork.NewService(cfgManager, nil)
	pipeline := resolving.NewPipeline(converter, oembed, artworkService, tag.NewWriter(), tag.NewReader())

	resolvingService := resolving.NewService(cfgManager, eventBus, pipeline, collectors)
	resolvingService.Start()

	// Queue manager: the single writer of the queue
	queueService := queue.NewService(cfgManager, store, eventBus, resolvingService, eventBus.Events(), state)
	queueService.SweepMediaDir()
	markers := queueService.Markers()
	go queueService.Run()

	// Donation source pollers. Tokens are read per cycle so config updates
	// apply without restarts.
	srcs := []donation.Source{
		sources.NewDonationAlerts(func() string {
			return cfgManager.Get().Sources.DonationAlerts.Token
		}, nil),
		sources.NewDonateX(func() string {
			return cfgManager.Get().Sources.DonateX.Token
		}, nil),
	}
	pollingService := polling.NewService(cfgManager, eventBus, collectors, srcs, markers)
	pollingService.Start()

	// Playback orchestrator
	audioPlayer := player.New(cfg.Playback.Player)
	playbackService := playback.NewService(cfgManager, queueService, audioPlayer, eventBus)
	playbackService.Start()

	// Metrics observer
	metricsService := metrics.NewService(collectors, cfg.MediaPath, eventBus.Subscribe("metrics"))
	metricsService.Start()
	metricsHandler := metrics.NewHandler(metricsService, collectors)

	// Re-read the config file when it changes on disk
	configWatcher, err := watcher.NewConfigWatcher(configPath, func() {
		reloaded, err := config.Load(configPath)
		if err != nil {
			slog.Error("Failed to reload config, keeping the previous one", "error", err)
			return
		}
		cfgManager.Update(reloaded.Get())
	})
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
	} else if err := configWatcher.Start(); err != nil {
		slog.Error("Failed to start config watcher", "error", err)
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	var telegramNotifier *hosting.TelegramNotifier
	if cfgManager.Get().Telegram.Enabled {
		var err error
		telegramBot, err = hosting.NewTelegramBot(cfgManager, queueService, playbackService, pollingService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			telegramNotifier = hosting.NewTelegramNotifier(cfgManager, telegramBot.Bot(), queueService, eventBus)
			telegramNotifier.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, pollingService, resolvingService, queueService, playbackService, metricsHandler)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	// Producers first, then the bus so in-flight events still reach the
	// queue manager, then the manager for its final persist.
	pollingService.Stop()
	resolvingService.Stop()
	playbackService.Shutdown()
	eventBus.Close()
	queueService.Stop()
	metricsService.Stop()
	if configWatcher != nil {
		configWatcher.Stop()
	}
	if telegramNotifier != nil {
		telegramNotifier.Stop()
	}
	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}
	if err := server.Shutdown(); err != nil {
		slog.Error("Failed to shut down server", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Error("Failed to close state store", "error", err)
	}
	slog.Info("Shut down cleanly.")
}

// restoreCredentials merges tokens persisted by previous runs into the
// loaded config; the config file wins when it carries a token itself.
func restoreCredentials(cfgManager *config.Manager, state *donation.PersistedState) {
	if state == nil || len(state.Credentials) == 0 {
		return
	}
	cfg := cfgManager.Get()
	if cfg.Sources.DonationAlerts.Token == "" {
		cfg.Sources.DonationAlerts.Token = state.Credentials[sources.DonationAlertsID]
	}
	if cfg.Sources.DonateX.Token == "" {
		cfg.Sources.DonateX.Token = state.Credentials[sources.DonateXID]
	}
}
