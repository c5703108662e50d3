package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vocalize/internal/config"
	"vocalize/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	server     *httptest.Server
	configPath string
	baseDir    string

	mu      sync.Mutex
	uploads int
}

// setupCLITestEnv starts a fake API server and writes a config pointing at it.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{}
	token := testsupport.MintToken(t, "42", "user", time.Hour)
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": token, "refresh_token": "refresh"})
		case r.URL.Path == "/auth/logout":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/usuarios/42":
			_ = json.NewEncoder(w).Encode(map[string]any{"nome": "Ana", "email": "ana@example.com", "acesso_permitido": true})
		case r.URL.Path == "/vocalizacoes" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "nome": "choro", "descricao": "choro agudo"}})
		case r.URL.Path == "/audios" && r.Method == http.MethodPost:
			env.mu.Lock()
			env.uploads++
			env.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 9, "participante_id": 2, "vocalizacao_id": 1})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
		}
	}))
	t.Cleanup(env.server.Close)

	env.cfg = testsupport.NewConfig(t, testsupport.WithBaseURL(env.server.URL))
	env.baseDir = testsupport.BaseDir(env.cfg)
	homeDir := filepath.Join(env.baseDir, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("NO_COLOR", "1")

	env.configPath = filepath.Join(homeDir, ".config", "vocalize", "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func (e *cliTestEnv) uploadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploads
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
