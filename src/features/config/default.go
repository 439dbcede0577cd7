package config

var defaultConfig = Config{
	MediaPath: "./media",
	Telegram: Telegram{
		Enabled:      false,
		Token:        "",                                   // Can be obtained with https://t.me/BotFather
		AllowedUsers: []string{"<your_telegram_username>"}, // No @
		BotHandle:    "@<YourMediaHubBot>",                 // With @
	},
	Logger: Logger{
		Enabled: true,
		Level:   "info",
		Format:  "text",
	},
	Sources: Sources{
		DonationAlerts: Source{
			Enabled:         false,
			Token:           "",
			IntervalSeconds: 3,
		},
		DonateX: Source{
			Enabled:         false,
			Token:           "",
			IntervalSeconds: 3,
		},
	},
	Downloads: Downloads{
		MaxConcurrent:  2,
		ConvertURL:     "https://yt.butterflynet.work/download/mp3",
		TimeoutSeconds: 40,
		Artwork: Artwork{
			Embedded: EmbeddedArtwork{
				Enabled: true,
				Size:    1000,
				Quality: 85,
			},
		},
	},
	Playback: Playback{
		Enabled:        true,
		Player:         "ffplay",
		AutoAdvance:    true,
		MinPlaySeconds: 1.2,
	},
	Queue: Queue{
		BusCapacity: 64,
	},
	Server: Server{
		PrintRoutes: false,
		Port:        3535,
	},
	Database: Database{
		Path: "./mediahub.db",
	},
}
