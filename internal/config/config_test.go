package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Agents.Defaults.Model != "gpt-4o" {
		t.Errorf("default model = %q, want %q", cfg.Agents.Defaults.Model, "gpt-4o")
	}
	if cfg.Agents.Defaults.MaxToolIterations != 25 {
		t.Errorf("default maxToolIterations = %d, want 25", cfg.Agents.Defaults.MaxToolIterations)
	}
	if cfg.Channels.Telegram.Enabled {
		t.Error("telegram should be disabled by default")
	}
	if !cfg.Sandbox.Enabled {
		t.Error("sandbox should be enabled by default")
	}
	if cfg.Sandbox.Backend != "srt" {
		t.Errorf("default sandbox backend = %q, want %q", cfg.Sandbox.Backend, "srt")
	}
	if cfg.Sandbox.Mode != "per-session" {
		t.Errorf("default sandbox mode = %q, want %q", cfg.Sandbox.Mode, "per-session")
	}
}

func TestWorkspacePath(t *testing.T) {
	cfg := DefaultConfig()
	path := cfg.WorkspacePath()

	if path == "" {
		t.Error("WorkspacePath() should not be empty")
	}
	if path == "~/.vikingbot/workspace/default" {
		t.Error("WorkspacePath() should expand tilde")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Agents.Defaults.Model != DefaultConfig().Agents.Defaults.Model {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"agents":{"defaults":{"model":"custom-model"}}}`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Agents.Defaults.Model != "custom-model" {
		t.Errorf("model = %q, want custom-model", cfg.Agents.Defaults.Model)
	}
	// Untouched sections keep defaults.
	if cfg.Providers.OpenAI.APIBase != "https://api.openai.com/v1" {
		t.Errorf("openai apiBase lost its default: %q", cfg.Providers.OpenAI.APIBase)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Providers.OpenAI.APIKey = "sk-test"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Providers.OpenAI.APIKey != "sk-test" {
		t.Error("saved API key did not round-trip")
	}
}

func TestGetActiveProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.VLLM.APIBase = ""

	if name, _, _ := cfg.GetActiveProvider(); name != "" {
		t.Errorf("expected no active provider, got %q", name)
	}

	cfg.Providers.Groq.APIKey = "gsk-test"
	name, key, base := cfg.GetActiveProvider()
	if name != "groq" || key != "gsk-test" || base == "" {
		t.Errorf("GetActiveProvider() = (%q, %q, %q)", name, key, base)
	}

	// OpenAI takes precedence when configured.
	cfg.Providers.OpenAI.APIKey = "sk-test"
	if name, _, _ := cfg.GetActiveProvider(); name != "openai" {
		t.Errorf("expected openai precedence, got %q", name)
	}
}
