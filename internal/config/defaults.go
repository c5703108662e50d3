package config

const (
	defaultAPITimeoutSeconds    = 30
	defaultStatePath            = "~/.local/share/vocalize/state.db"
	defaultRecordingsDir        = "~/.local/share/vocalize/recordings"
	defaultCacheTTLHours        = 24
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultConfigPath           = "~/.config/vocalize/config.toml"
	projectConfigName           = "vocalize.toml"
	envAPIURL                   = "VOCALIZE_API_URL"
	envAPIKey                   = "VOCALIZE_API_KEY"
	envNtfyTopic                = "VOCALIZE_NTFY_TOPIC"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			TimeoutSeconds: defaultAPITimeoutSeconds,
		},
		Storage: Storage{
			StatePath:     defaultStatePath,
			RecordingsDir: defaultRecordingsDir,
		},
		Cache: Cache{
			TTLHours: defaultCacheTTLHours,
		},
		Notifications: Notifications{
			RequestTimeout:    defaultNotifyRequestTimeout,
			PendingRecordings: true,
			Session:           true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
