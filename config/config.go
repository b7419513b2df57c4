package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Debug enables verbose logging across the application. Set via
// MURMUR_DEBUG=1 or the debug flag in the config file.
var Debug bool

// DebugLog receives debug output when Debug is true. Nil otherwise,
// so callers must guard: if config.Debug && config.DebugLog != nil.
var DebugLog *log.Logger

// InitDebugLog opens the debug log file under the data directory.
func InitDebugLog(dataDir string) error {
	if !Debug {
		return nil
	}
	logPath := filepath.Join(dataDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open debug log: %w", err)
	}
	DebugLog = log.New(f, "", log.LstdFlags|log.Lmicroseconds)
	DebugLog.Println("=== murmur debug log started ===")
	return nil
}

// Config is the fully resolved runtime configuration: file values
// merged with environment overrides and defaults.
type Config struct {
	// Backend selects how chat requests reach the provider:
	// "direct", "worker", or "edge".
	Backend string `toml:"backend"`

	// Endpoint is the chat completions URL for the direct backend.
	Endpoint string `toml:"endpoint"`

	// WorkerURL and EdgeURL are the proxy endpoints for the
	// worker and edge backends.
	WorkerURL string `toml:"worker_url"`
	EdgeURL   string `toml:"edge_url"`

	DefaultModel string  `toml:"default_model"`
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature"`
	MaxTokens    int     `toml:"max_tokens"`

	// RequestTimeoutSeconds bounds a single streaming request.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// Title generation settings. TitleHost is an Ollama base URL.
	TitleEnabled bool   `toml:"title_enabled"`
	TitleHost    string `toml:"title_host"`
	TitleModel   string `toml:"title_model"`

	// ArchiveEnabled persists conversations to the local archive.
	ArchiveEnabled bool `toml:"archive_enabled"`

	Debug bool `toml:"debug"`

	// DataDir comes from settings.toml, not the user config file.
	DataDir string `toml:"-"`
}

// Load reads settings.toml and config.toml from the config directory,
// creating both with defaults on first run, then applies environment
// overrides.
func Load() (*Config, error) {
	settings, err := LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	dataDir, err := ExpandPath(settings.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to expand data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, err
	}

	configPath, err := ConfigFilePath()
	if err != nil {
		return nil, err
	}
	if !FileExists(configPath) {
		if err := writeDefaultConfig(configPath); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	cfg.DataDir = dataDir

	applyEnvOverrides(cfg)

	if cfg.Debug || os.Getenv("MURMUR_DEBUG") == "1" {
		Debug = true
		if err := InitDebugLog(dataDir); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets MURMUR_* environment variables take
// precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MURMUR_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("MURMUR_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("MURMUR_WORKER_URL"); v != "" {
		cfg.WorkerURL = v
	}
	if v := os.Getenv("MURMUR_EDGE_URL"); v != "" {
		cfg.EdgeURL = v
	}
	if v := os.Getenv("MURMUR_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("MURMUR_TITLE_HOST"); v != "" {
		cfg.TitleHost = v
	}
	if v := os.Getenv("MURMUR_TITLE_MODEL"); v != "" {
		cfg.TitleModel = v
	}
	if v := os.Getenv("MURMUR_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("MURMUR_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case "", "direct", "worker", "edge":
	default:
		return fmt.Errorf("unknown backend %q (expected direct, worker, or edge)", c.Backend)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 120
	}
	return nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
