// ABOUTME: Configuration loading and parsing for emberchat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emberchat/emberchat/internal/ollama"
)

// Config represents the complete emberchat configuration. Every field has a
// working default; a missing config file is not an error.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Images   ImagesConfig   `yaml:"images"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds the loopback API listen address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds the database file location. Empty means the default
// per-user data directory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ImagesConfig holds the image directory location. Empty means the default
// images directory next to the database file.
type ImagesConfig struct {
	Dir string `yaml:"dir"`
}

// OllamaConfig holds the inference server endpoint and timeout.
type OllamaConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration: loopback API, well-known
// Ollama endpoint, 120s request timeout, data paths resolved at startup.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8136",
		},
		Ollama: OllamaConfig{
			BaseURL: ollama.DefaultBaseURL,
			Timeout: ollama.DefaultTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config merged over the defaults. Environment variables in the format
// ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url is required")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Ollama.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Ollama.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ollama timeout %q: %w", cfg.Ollama.TimeoutRaw, err)
		}
		cfg.Ollama.Timeout = timeout
	}
	return nil
}

// DefaultDataDir resolves the per-user data directory for the database and
// images. Priority: XDG_DATA_HOME/emberchat > ~/.local/share/emberchat >
// ~/.emberchat > current directory.
func DefaultDataDir() string {
	if dataDir := os.Getenv("XDG_DATA_HOME"); dataDir != "" {
		return filepath.Join(dataDir, "emberchat")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	share := filepath.Join(homeDir, ".local", "share")
	if info, err := os.Stat(share); err == nil && info.IsDir() {
		return filepath.Join(share, "emberchat")
	}
	return filepath.Join(homeDir, ".emberchat")
}

// ResolvePaths fills in the database path and images directory from the
// data directory when the config file left them empty.
func (c *Config) ResolvePaths(dataDir string) {
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(dataDir, "chat.db")
	}
	if c.Images.Dir == "" {
		c.Images.Dir = filepath.Join(dataDir, "images")
	}
}
