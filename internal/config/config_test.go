package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vocalize/internal/config"
)

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	t.Setenv("VOCALIZE_API_URL", "https://api.example.test/")
	t.Setenv("VOCALIZE_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.API.BaseURL != "https://api.example.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.API.APIKey)
	}
	if cfg.API.CheckURL != cfg.API.BaseURL {
		t.Fatalf("expected check url to default to base url, got %q", cfg.API.CheckURL)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "vocalize", "state.db")
	if cfg.Storage.StatePath != wantState {
		t.Fatalf("unexpected state path: got %q want %q", cfg.Storage.StatePath, wantState)
	}
	if cfg.CacheTTL() != 24*time.Hour {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL())
	}
	if cfg.APITimeout() != 30*time.Second {
		t.Fatalf("unexpected api timeout: %s", cfg.APITimeout())
	}
	if !cfg.Notifications.PendingRecordings {
		t.Fatal("expected pending recording reminders enabled by default")
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOCALIZE_API_URL", "")
	t.Setenv("VOCALIZE_API_KEY", "key")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when base url missing")
	}
	if !strings.Contains(err.Error(), "api.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := config.Default()
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.API.APIKey = "from-file"
	cfg.Cache.TTLHours = 6
	cfg.Logging.Format = "JSON"
	cfg.Storage.StatePath = filepath.Join(dir, "state.db")

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q exists=%v", path, resolved, exists)
	}
	if loaded.API.APIKey != "from-file" {
		t.Fatalf("unexpected api key %q", loaded.API.APIKey)
	}
	if loaded.CacheTTL() != 6*time.Hour {
		t.Fatalf("unexpected ttl %s", loaded.CacheTTL())
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected lowercase log format, got %q", loaded.Logging.Format)
	}
}

func TestValidateRejectsUnknownLogFormat(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = "https://api.example.test"
	cfg.API.APIKey = "key"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for log format")
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	written, err := config.WriteSample(path, false)
	if err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if written != path {
		t.Fatalf("unexpected path %q", written)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Cache.TTLHours != 24 {
		t.Fatalf("unexpected sample ttl %d", decoded.Cache.TTLHours)
	}

	if _, err := config.WriteSample(path, false); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
