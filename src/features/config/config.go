package config

// Config holds the application configuration.
type Config struct {
	MediaPath string    `yaml:"media_path" validate:"required"`
	Telegram  Telegram  `yaml:"telegram"`
	Logger    Logger    `yaml:"logger"`
	Sources   Sources   `yaml:"sources"`
	Downloads Downloads `yaml:"downloads"`
	Playback  Playback  `yaml:"playback"`
	Queue     Queue     `yaml:"queue"`
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
}

// Sources holds the polling configuration for each donation provider.
type Sources struct {
	DonationAlerts Source `yaml:"donationalerts"`
	DonateX        Source `yaml:"donatex"`
}

// Source holds the configuration for a single donation provider.
// An empty token means the poller for this source does not start.
type Source struct {
	Enabled         bool   `yaml:"enabled"`
	Token           string `yaml:"token"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// Downloads holds the configuration for the resolver workers.
type Downloads struct {
	MaxConcurrent  int     `yaml:"max_concurrent"`
	ConvertURL     string  `yaml:"convert_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Artwork        Artwork `yaml:"artwork"`
}

// Playback holds the configuration for the local player.
type Playback struct {
	Enabled        bool    `yaml:"enabled"`
	Player         string  `yaml:"player"` // "ffplay" or "null"
	AutoAdvance    bool    `yaml:"auto_advance"`
	MinPlaySeconds float64 `yaml:"min_play_seconds"`
}

// Queue holds the configuration for the queue manager and event bus.
type Queue struct {
	BusCapacity int `yaml:"bus_capacity"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
	// NotifyChatID receives ready-track and source-health announcements.
	// Zero disables announcements.
	NotifyChatID int64 `yaml:"notifyChatId"`
}

// Artwork holds configuration for artwork handling
type Artwork struct {
	Embedded EmbeddedArtwork `yaml:"embedded"`
}

// EmbeddedArtwork holds configuration for embedded artwork
type EmbeddedArtwork struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
	Quality int  `yaml:"quality"`
}
