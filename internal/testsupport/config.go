package testsupport

import (
	"path/filepath"
	"testing"

	"vocalize/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose storage lives in a per-test temp
// directory. The API points at an unroutable placeholder until WithBaseURL is
// applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.API.BaseURL = "http://127.0.0.1:0"
	cfgVal.API.CheckURL = cfgVal.API.BaseURL
	cfgVal.API.APIKey = "test-key"
	cfgVal.API.TimeoutSeconds = 5
	cfgVal.Storage.StatePath = filepath.Join(base, "state", "state.db")
	cfgVal.Storage.RecordingsDir = filepath.Join(base, "recordings")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBaseURL points the API and the connectivity check at url, typically an
// httptest server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
		b.cfg.API.CheckURL = url
	}
}

// WithAPIKey overrides the static API key.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.APIKey = key
	}
}

// WithNtfyTopic enables ntfy notifications against topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Storage.StatePath))
}
