package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Settings holds machine-level options stored separately from the
// user config so the data directory can move without touching
// chat settings.
type Settings struct {
	DataDirectory string `toml:"data_directory"`
}

// LoadSettings reads settings.toml from the config directory,
// creating it with defaults on first run.
func LoadSettings() (*Settings, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	settingsPath := filepath.Join(configDir, "settings.toml")

	if !FileExists(settingsPath) {
		defaults := &Settings{DataDirectory: DefaultDataDir()}
		if err := SaveSettings(defaults); err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return defaults, nil
	}

	var settings Settings
	if _, err := toml.DecodeFile(settingsPath, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", settingsPath, err)
	}
	if settings.DataDirectory == "" {
		settings.DataDirectory = DefaultDataDir()
	}
	return &settings, nil
}

// SaveSettings writes settings.toml with owner-only permissions.
func SaveSettings(settings *Settings) error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := filepath.Join(configDir, "settings.toml")
	f, err := os.OpenFile(settingsPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open settings file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}
