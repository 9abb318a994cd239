package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the default data directory name.
	DefaultConfigDir = ".vikingbot"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.json"
)

// DataDir returns the root data directory path (~/.vikingbot).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", DefaultConfigDir)
	}
	return filepath.Join(home, DefaultConfigDir)
}

// GetConfigPath returns the default config file path (~/.vikingbot/config.json).
func GetConfigPath() string {
	return filepath.Join(DataDir(), DefaultConfigFile)
}

// SessionsDir returns the directory that session files are persisted to.
func SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

// SandboxSettingsDir returns the directory for per-session sandbox
// settings files.
func SandboxSettingsDir() string {
	return filepath.Join(DataDir(), "sandboxes")
}

// CronDir returns the directory cron job definitions are persisted to.
func CronDir() string {
	return filepath.Join(DataDir(), "cron")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, it uses the default config path (~/.vikingbot/config.json).
// If the config file doesn't exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}
	path = ExpandPath(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Start with defaults and unmarshal over them.
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified path.
// If path is empty, it uses the default config path.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}
	path = ExpandPath(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Config may contain API keys; keep it owner-only.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// Exists checks if a config file exists at the given path.
// If path is empty, checks the default config path.
func Exists(path string) bool {
	if path == "" {
		path = GetConfigPath()
	}
	path = ExpandPath(path)
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirs creates the data directory tree used by the runtime.
func EnsureDataDirs() error {
	for _, dir := range []string{
		DataDir(),
		SessionsDir(),
		SandboxSettingsDir(),
		CronDir(),
	} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
