package logging_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vocalize/internal/config"
	"vocalize/internal/logging"
)

func newFileLogger(t *testing.T, format, level string) (string, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "vocalize.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "api").Info("refresh succeeded",
		logging.String(logging.FieldEventType, "token_refreshed"),
		logging.Int(logging.FieldStatus, 200),
	)
	logger.Debug("debug line")
	return path, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(data)
	}
}

func TestNewFromConfigDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "vocalize.log")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Info("hello")
	if _, err := os.Stat(cfg.Logging.File); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestConsoleFormatIncludesComponentAndFields(t *testing.T) {
	_, read := newFileLogger(t, "console", "info")
	content := read()

	if !strings.Contains(content, "INFO api: refresh succeeded") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "event_type=token_refreshed") || !strings.Contains(content, "status=200") {
		t.Fatalf("expected attributes, got %q", content)
	}
	if strings.Contains(content, "debug line") {
		t.Fatalf("debug record should be filtered at info level, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("file output must not contain color codes, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestConsoleFormatIncludesSourceForDebug(t *testing.T) {
	_, read := newFileLogger(t, "console", "debug")
	content := read()
	if !strings.Contains(content, "debug line") {
		t.Fatalf("expected debug record, got %q", content)
	}
	if !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information at debug level, got %q", content)
	}
}

func TestJSONFormat(t *testing.T) {
	_, read := newFileLogger(t, "json", "info")
	line := strings.TrimSpace(strings.Split(read(), "\n")[0])

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, line)
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload["component"] != "api" || payload["event_type"] != "token_refreshed" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cache entry unreadable", "cache_corrupt", logging.Error(errors.New("bad json")))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %s in %v", key, payload)
		}
	}
	if payload["error"] != "bad json" {
		t.Fatalf("expected error attr, got %v", payload["error"])
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("never written")
	if logger.Enabled(t.Context(), 99) {
		t.Fatal("nop logger must report disabled")
	}
	if logging.NewComponentLogger(nil, "x") == nil {
		t.Fatal("expected component logger from nil base")
	}
}

func TestCredentialAttributesAreRedacted(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vocalize.log")
			logger, err := logging.New(logging.Options{Format: format, Level: "info", OutputPaths: []string{path}})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}
			logger.Info("login",
				logging.String("refresh_token", "r-secret"),
				logging.String("senha", "pw-secret"),
				logging.String(logging.FieldUserID, "42"),
			)
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read log file: %v", err)
			}
			content := string(data)
			if strings.Contains(content, "r-secret") || strings.Contains(content, "pw-secret") {
				t.Fatalf("credential leaked into log: %q", content)
			}
			if !strings.Contains(content, "[redacted]") || !strings.Contains(content, "42") {
				t.Fatalf("expected redacted marker and user id, got %q", content)
			}
		})
	}
}

func TestErrorWithContextKeepsAlert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "error.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "session ended", "session_ended",
		logging.Alert("sign_in_required"),
		logging.String(logging.FieldErrorHint, "run vocalize login"),
	)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldAlert] != "sign_in_required" || payload[logging.FieldEventType] != "session_ended" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload[logging.FieldErrorHint] != "run vocalize login" {
		t.Fatalf("caller hint must not be replaced, got %v", payload[logging.FieldErrorHint])
	}
	if _, ok := payload[logging.FieldImpact]; ok {
		t.Fatalf("error records do not get a default impact, got %v", payload)
	}
}
