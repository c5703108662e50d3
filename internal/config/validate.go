package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("api.base_url is required. Set %s env var or edit %s (create with 'vocalize config init')", envAPIURL, defaultPath)
	}
	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https, got %q", c.API.BaseURL)
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required. Set %s env var or edit the config file", envAPIKey)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTLHours < 0 {
		return errors.New("cache.ttl_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
