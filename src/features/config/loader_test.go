package config

import (
	"os"
	"strings"
	"testing"
)

// chdir stands in for testing.T.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("Chdir: %v", err)
		}
	})
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	chdir(t, t.TempDir())

	manager, err := Load("config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if _, err := os.Stat("config.yaml"); err != nil {
		t.Errorf("expected default config file to be created: %v", err)
	}

	cfg := manager.Get()
	if cfg.Downloads.MaxConcurrent != 2 {
		t.Errorf("expected default max_concurrent 2, got %d", cfg.Downloads.MaxConcurrent)
	}
	if !cfg.Playback.AutoAdvance {
		t.Error("expected auto_advance enabled by default")
	}
	if cfg.Sources.DonationAlerts.IntervalSeconds != 3 {
		t.Errorf("expected default poll interval 3, got %d", cfg.Sources.DonationAlerts.IntervalSeconds)
	}
}

func TestLoadParsesExistingConfig(t *testing.T) {
	chdir(t, t.TempDir())

	yml := `media_path: ./tracks
database:
  path: ./state.db
sources:
  donationalerts:
    enabled: true
    token: secret-da
downloads:
  max_concurrent: 4
`
	if err := os.WriteFile("config.yaml", []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := Load("config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := manager.Get()
	if cfg.MediaPath != "./tracks" {
		t.Errorf("expected media_path ./tracks, got %s", cfg.MediaPath)
	}
	if !cfg.Sources.DonationAlerts.Enabled {
		t.Error("expected donationalerts enabled")
	}
	if cfg.Sources.DonationAlerts.Token != "secret-da" {
		t.Errorf("unexpected donationalerts token: %s", cfg.Sources.DonationAlerts.Token)
	}
	if cfg.Downloads.MaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.Downloads.MaxConcurrent)
	}

	// Missing values get their documented defaults.
	if cfg.Sources.DonationAlerts.IntervalSeconds != 3 {
		t.Errorf("expected interval default 3, got %d", cfg.Sources.DonationAlerts.IntervalSeconds)
	}
	if cfg.Downloads.TimeoutSeconds != 40 {
		t.Errorf("expected timeout default 40, got %d", cfg.Downloads.TimeoutSeconds)
	}
	if cfg.Queue.BusCapacity != 64 {
		t.Errorf("expected bus capacity default 64, got %d", cfg.Queue.BusCapacity)
	}
}

func TestLoadRejectsConfigWithoutMediaPath(t *testing.T) {
	chdir(t, t.TempDir())

	yml := "database:\n  path: ./state.db\n"
	if err := os.WriteFile("config.yaml", []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load("config.yaml"); err == nil {
		t.Fatal("expected validation error for missing media_path")
	}
}

func TestRedactedOutputHidesTokens(t *testing.T) {
	cfg := createDefaultConfig()
	cfg.Sources.DonationAlerts.Token = "super-secret"
	cfg.Telegram.Token = "bot-token"

	manager := NewManager(cfg)
	out := manager.GetJSON()

	if strings.Contains(out, "super-secret") || strings.Contains(out, "bot-token") {
		t.Errorf("expected tokens to be redacted, got %s", out)
	}
}
