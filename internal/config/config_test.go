// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:9000"

database:
  path: "./test.db"

images:
  dir: "./test-images"

ollama:
  base_url: "http://localhost:11500"
  timeout: "90s"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, "127.0.0.1:9000")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Images.Dir != "./test-images" {
		t.Errorf("Images.Dir = %q, want %q", cfg.Images.Dir, "./test-images")
	}
	if cfg.Ollama.BaseURL != "http://localhost:11500" {
		t.Errorf("Ollama.BaseURL = %q, want %q", cfg.Ollama.BaseURL, "http://localhost:11500")
	}
	if cfg.Ollama.Timeout != 90*time.Second {
		t.Errorf("Ollama.Timeout = %v, want %v", cfg.Ollama.Timeout, 90*time.Second)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:8136" {
		t.Errorf("Server.Addr default lost: %q", cfg.Server.Addr)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL default lost: %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Timeout != 120*time.Second {
		t.Errorf("Ollama.Timeout default lost: %v", cfg.Ollama.Timeout)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("EMBERCHAT_TEST_ADDR", "127.0.0.1:7777")

	path := writeConfig(t, `
server:
  addr: "${EMBERCHAT_TEST_ADDR}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7777" {
		t.Errorf("env var not expanded: %q", cfg.Server.Addr)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
ollama:
  timeout: "soon"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "parsing durations") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: "loud"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.ResolvePaths("/data/emberchat")

	if cfg.Database.Path != filepath.Join("/data/emberchat", "chat.db") {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Images.Dir != filepath.Join("/data/emberchat", "images") {
		t.Errorf("Images.Dir = %q", cfg.Images.Dir)
	}

	// Explicit settings win
	cfg2 := Default()
	cfg2.Database.Path = "/custom/chat.db"
	cfg2.ResolvePaths("/data/emberchat")
	if cfg2.Database.Path != "/custom/chat.db" {
		t.Errorf("explicit Database.Path overridden: %q", cfg2.Database.Path)
	}
}

func TestDefaultDataDir_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	got := DefaultDataDir()
	if got != filepath.Join("/tmp/xdg-data", "emberchat") {
		t.Errorf("DefaultDataDir() = %q", got)
	}
}
