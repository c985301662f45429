// ABOUTME: Entry point for the emberchat backend
// ABOUTME: Serves the loopback API over the SQLite store and the Ollama gateway

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/emberchat/emberchat/internal/api"
	"github.com/emberchat/emberchat/internal/config"
	"github.com/emberchat/emberchat/internal/images"
	"github.com/emberchat/emberchat/internal/ollama"
	"github.com/emberchat/emberchat/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                 _                    _           _
  ___ _ __ ___ | |__   ___ _ __ ___| |__   __ _| |_
 / _ \ '_ ' _ \| '_ \ / _ \ '__/ __| '_ \ / _' | __|
|  __/ | | | | | |_) |  __/ | | (__| | | | (_| | |_
 \___|_| |_| |_|_.__/ \___|_|  \___|_| |_|\__,_|\__|
`

// getConfigPath returns the path to the config file.
// Priority: EMBERCHAT_CONFIG env var > XDG_CONFIG_HOME/emberchat/config.yaml > ~/.config/emberchat/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("EMBERCHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "emberchat", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: emberchat <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the backend server")
		fmt.Println("  init     Create a starter config file")
		fmt.Println("  health   Check whether the Ollama server is reachable")
		fmt.Println("  models   List installed Ollama models")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "models":
		err = runModels(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file if present and falls back to the
// built-in defaults otherwise. Data paths are resolved either way.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
	}

	cfg.ResolvePaths(config.DefaultDataDir())
	return cfg, nil
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("API:      %s\n", cfg.Server.Addr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Images:   %s\n", cfg.Images.Dir)
	green.Print("    ▶ ")
	fmt.Printf("Ollama:   %s\n", cfg.Ollama.BaseURL)
	fmt.Println()

	logger.Info("starting emberchat",
		"addr", cfg.Server.Addr,
		"database", cfg.Database.Path,
		"ollama", cfg.Ollama.BaseURL,
	)

	// Open the store
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	// Sweep images whose messages no longer exist
	report, err := st.CleanupOrphanedImages(ctx, cfg.Images.Dir)
	if err != nil {
		logger.Warn("startup image cleanup failed", "error", err)
	} else if report.Removed > 0 || report.Failed > 0 {
		logger.Info("startup image cleanup",
			"removed", report.Removed,
			"failed", report.Failed,
		)
	}

	gateway := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.Timeout)
	if !gateway.CheckConnection(ctx) {
		logger.Warn("Ollama server is not reachable; prompts will fail until it starts",
			"base_url", cfg.Ollama.BaseURL)
	}

	server := api.NewServer(st, gateway, images.NewDir(cfg.Images.Dir), logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runInit writes a starter config file. An existing file is never
// overwritten.
func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configContent := `# emberchat configuration
# Generated by emberchat init

server:
  addr: "127.0.0.1:8136"

database:
  path: ""   # default: per-user data directory

images:
  dir: ""    # default: images/ next to the database

ollama:
  base_url: "http://localhost:11434"
  timeout: "120s"

logging:
  level: "info"
  format: "text"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)
	return nil
}

// runHealth probes the Ollama server directly, without the backend running.
func runHealth(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client := ollama.New(cfg.Ollama.BaseURL, 5*time.Second)

	if client.CheckConnection(ctx) {
		color.New(color.FgGreen).Printf("  ✓ Ollama is reachable at %s\n", cfg.Ollama.BaseURL)
		return nil
	}

	color.New(color.FgRed).Printf("  ✗ Ollama is not reachable at %s\n", cfg.Ollama.BaseURL)
	fmt.Println("    Start it with 'ollama serve'")
	os.Exit(1)
	return nil
}

func runModels(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client := ollama.New(cfg.Ollama.BaseURL, cfg.Ollama.Timeout)

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	if len(models) == 0 {
		fmt.Println("No models installed. Pull one with 'ollama pull <model>'.")
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, m := range models {
		cyan.Printf("  %s", m.Name)
		gray.Printf("  %.1f GB\n", float64(m.Size)/(1024*1024*1024))
	}
	return nil
}
