package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the remote service endpoint and credentials.
type API struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// CheckURL is requested to decide whether the device is online.
	// Defaults to BaseURL when empty.
	CheckURL string `toml:"check_url"`
}

// Storage contains local persistence locations.
type Storage struct {
	StatePath     string `toml:"state_path"`
	RecordingsDir string `toml:"recordings_dir"`
}

// Cache contains the freshness window for cached collections.
type Cache struct {
	TTLHours int `toml:"ttl_hours"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic         string `toml:"ntfy_topic"`
	RequestTimeout    int    `toml:"request_timeout"`
	PendingRecordings bool   `toml:"pending_recordings"`
	Session           bool   `toml:"session"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for vocalize.
//
// Configuration sections by subsystem:
//   - API: remote service base URL, static API key, and HTTP timeout
//   - Storage: the local key-value state database and recordings directory
//   - Cache: freshness window for cached collections
//   - Notifications: ntfy reminder settings
//   - Logging: log format, level, and optional file output
type Config struct {
	API           API           `toml:"api"`
	Storage       Storage       `toml:"storage"`
	Cache         Cache         `toml:"cache"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// SampleConfig returns the commented sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// WriteSample writes the sample configuration to path unless a file already exists.
func WriteSample(path string, overwrite bool) (string, error) {
	target := strings.TrimSpace(path)
	if target == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		target = defaultPath
	}
	expanded, err := expandPath(target)
	if err != nil {
		return "", err
	}
	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return "", fmt.Errorf("config already exists at %s", expanded)
		}
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return expanded, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories holding local state and recordings.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Storage.StatePath), c.Storage.RecordingsDir}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// APITimeout returns the HTTP timeout applied to API calls.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// CacheTTL returns the freshness window for cached collections.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// NotificationTimeout returns the ntfy request timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
