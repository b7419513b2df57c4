package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFirstRunWritesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MURMUR_DATA_DIR", filepath.Join(home, "data"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Backend != "direct" {
		t.Errorf("backend = %q, want direct", cfg.Backend)
	}
	if cfg.DefaultModel == "" {
		t.Error("expected a default model")
	}
	if cfg.RequestTimeout() != 120*time.Second {
		t.Errorf("timeout = %v, want 120s", cfg.RequestTimeout())
	}

	// Config and settings files must exist after first run.
	for _, rel := range []string{"config.toml", "settings.toml"} {
		path := filepath.Join(home, ".config", "murmur", rel)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to be created: %v", rel, err)
		}
	}
}

func TestLoadParsesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MURMUR_DATA_DIR", filepath.Join(home, "data"))

	configDir := filepath.Join(home, ".config", "murmur")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatal(err)
	}
	content := `
backend = "worker"
worker_url = "https://relay.example.com"
default_model = "my-model"
temperature = 0.2
max_tokens = 512
request_timeout_seconds = 30
title_enabled = false
`
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Backend != "worker" {
		t.Errorf("backend = %q, want worker", cfg.Backend)
	}
	if cfg.WorkerURL != "https://relay.example.com" {
		t.Errorf("worker url = %q", cfg.WorkerURL)
	}
	if cfg.DefaultModel != "my-model" {
		t.Errorf("model = %q", cfg.DefaultModel)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("temperature = %v", cfg.Temperature)
	}
	if cfg.MaxTokens != 512 {
		t.Errorf("max_tokens = %d", cfg.MaxTokens)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.RequestTimeout())
	}
	if cfg.TitleEnabled {
		t.Error("title_enabled should be false")
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MURMUR_DATA_DIR", filepath.Join(home, "data"))
	t.Setenv("MURMUR_BACKEND", "edge")
	t.Setenv("MURMUR_EDGE_URL", "https://edge.example.com")
	t.Setenv("MURMUR_MODEL", "env-model")
	t.Setenv("MURMUR_MAX_TOKENS", "256")
	t.Setenv("MURMUR_TEMPERATURE", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Backend != "edge" {
		t.Errorf("backend = %q, want edge", cfg.Backend)
	}
	if cfg.EdgeURL != "https://edge.example.com" {
		t.Errorf("edge url = %q", cfg.EdgeURL)
	}
	if cfg.DefaultModel != "env-model" {
		t.Errorf("model = %q, want env-model", cfg.DefaultModel)
	}
	if cfg.MaxTokens != 256 {
		t.Errorf("max_tokens = %d, want 256", cfg.MaxTokens)
	}
	if cfg.Temperature != 1.5 {
		t.Errorf("temperature = %v, want 1.5", cfg.Temperature)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown backend", Config{Backend: "carrier-pigeon", Temperature: 0.7}},
		{"temperature too high", Config{Backend: "direct", Temperature: 3}},
		{"negative temperature", Config{Backend: "direct", Temperature: -1}},
		{"negative max tokens", Config{Backend: "direct", Temperature: 0.7, MaxTokens: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		input string
		want  string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.input)
		if err != nil {
			t.Errorf("ExpandPath(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	in := &Settings{DataDirectory: "~/custom/data"}
	if err := SaveSettings(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.DataDirectory != in.DataDirectory {
		t.Errorf("data dir = %q, want %q", out.DataDirectory, in.DataDirectory)
	}

	info, err := os.Stat(filepath.Join(home, ".config", "murmur", "settings.toml"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	// The shipped template must stay decodable into Config.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "backend = \"direct\"") {
		t.Error("template should select the direct backend by default")
	}
}
