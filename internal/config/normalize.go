package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeCache()
	c.normalizeNotifications()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeAPI() {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		if value, ok := os.LookupEnv(envAPIURL); ok {
			c.API.BaseURL = value
		}
	}
	if strings.TrimSpace(c.API.APIKey) == "" {
		if value, ok := os.LookupEnv(envAPIKey); ok {
			c.API.APIKey = value
		}
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.API.APIKey = strings.TrimSpace(c.API.APIKey)
	c.API.CheckURL = strings.TrimSpace(c.API.CheckURL)
	if c.API.CheckURL == "" {
		c.API.CheckURL = c.API.BaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	var err error
	if strings.TrimSpace(c.Storage.StatePath) == "" {
		c.Storage.StatePath = defaultStatePath
	}
	if c.Storage.StatePath, err = expandPath(c.Storage.StatePath); err != nil {
		return fmt.Errorf("storage.state_path: %w", err)
	}
	if strings.TrimSpace(c.Storage.RecordingsDir) == "" {
		c.Storage.RecordingsDir = defaultRecordingsDir
	}
	if c.Storage.RecordingsDir, err = expandPath(c.Storage.RecordingsDir); err != nil {
		return fmt.Errorf("storage.recordings_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizeNotifications() {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		if value, ok := os.LookupEnv(envNtfyTopic); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Logging.File))
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}
