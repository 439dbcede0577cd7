package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		// Save default config to file
		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		manager := NewManager(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Set defaults for missing values
	applyDefaults(&cfg)

	// Override with environment variables if set
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if token := os.Getenv("DONATIONALERTS_TOKEN"); token != "" {
		cfg.Sources.DonationAlerts.Token = token
	}
	if token := os.Getenv("DONATEX_TOKEN"); token != "" {
		cfg.Sources.DonateX.Token = token
	}

	manager := NewManager(&cfg)
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// applyDefaults fills zero values whose documented default is non-zero.
func applyDefaults(cfg *Config) {
	if cfg.Sources.DonationAlerts.IntervalSeconds <= 0 {
		cfg.Sources.DonationAlerts.IntervalSeconds = defaultConfig.Sources.DonationAlerts.IntervalSeconds
	}
	if cfg.Sources.DonateX.IntervalSeconds <= 0 {
		cfg.Sources.DonateX.IntervalSeconds = defaultConfig.Sources.DonateX.IntervalSeconds
	}
	if cfg.Downloads.MaxConcurrent <= 0 {
		cfg.Downloads.MaxConcurrent = defaultConfig.Downloads.MaxConcurrent
	}
	if cfg.Downloads.TimeoutSeconds <= 0 {
		cfg.Downloads.TimeoutSeconds = defaultConfig.Downloads.TimeoutSeconds
	}
	if cfg.Downloads.ConvertURL == "" {
		cfg.Downloads.ConvertURL = defaultConfig.Downloads.ConvertURL
	}
	if cfg.Playback.Player == "" {
		cfg.Playback.Player = defaultConfig.Playback.Player
	}
	if cfg.Playback.MinPlaySeconds <= 0 {
		cfg.Playback.MinPlaySeconds = defaultConfig.Playback.MinPlaySeconds
	}
	if cfg.Queue.BusCapacity <= 0 {
		cfg.Queue.BusCapacity = defaultConfig.Queue.BusCapacity
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultConfig.Server.Port
	}
}

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	cfg := defaultConfig
	return &cfg
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
