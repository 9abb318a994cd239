package tui

import (
	"strings"
	"testing"
)

func TestBuildConfigFromState(t *testing.T) {
	state := &SetupState{
		Provider:       ProviderGroq,
		APIKey:         "gsk_test",
		Model:          "llama-3.3-70b-versatile",
		ConfigTelegram: true,
		TelegramToken:  "123:abc",
		TelegramUsers:  " 42, alice ,",
		SandboxBackend: "docker",
		ConfigSearch:   true,
		SearchBackend:  "brave",
		SearchAPIKey:   "BSA-test",
	}

	cfg := buildConfigFromState(state)

	if cfg.Providers.Groq.APIKey != "gsk_test" {
		t.Errorf("groq key = %q", cfg.Providers.Groq.APIKey)
	}
	if cfg.Agents.Defaults.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", cfg.Agents.Defaults.Model)
	}
	if !cfg.Channels.Telegram.Enabled || cfg.Channels.Telegram.Token != "123:abc" {
		t.Errorf("telegram = %+v", cfg.Channels.Telegram)
	}
	if len(cfg.Channels.Telegram.AllowFrom) != 2 || cfg.Channels.Telegram.AllowFrom[1] != "alice" {
		t.Errorf("allowFrom = %v", cfg.Channels.Telegram.AllowFrom)
	}
	if !cfg.Sandbox.Enabled || cfg.Sandbox.Backend != "docker" {
		t.Errorf("sandbox = %+v", cfg.Sandbox)
	}
	if cfg.Tools.Web.Search.Backend != "brave" || cfg.Tools.Web.Search.BraveAPIKey != "BSA-test" {
		t.Errorf("search = %+v", cfg.Tools.Web.Search)
	}
}

func TestBuildConfigSandboxOff(t *testing.T) {
	cfg := buildConfigFromState(&SetupState{
		Provider:       ProviderVLLM,
		BaseURL:        "http://box:8000/v1",
		CustomModel:    "qwen2.5-32b",
		SandboxBackend: "off",
	})

	if cfg.Sandbox.Enabled {
		t.Error("sandbox should be disabled")
	}
	if cfg.Providers.VLLM.APIBase != "http://box:8000/v1" {
		t.Errorf("vllm base = %q", cfg.Providers.VLLM.APIBase)
	}
	if cfg.Agents.Defaults.Model != "qwen2.5-32b" {
		t.Errorf("model = %q", cfg.Agents.Defaults.Model)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("got %q", got)
	}
	got := maskAPIKey("sk-abcdefghijklmnop")
	if !strings.HasPrefix(got, "sk-a") || !strings.HasSuffix(got, "mnop") || !strings.Contains(got, "****") {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "bcdefghijkl") {
		t.Errorf("middle of key leaked: %q", got)
	}
}

func TestBuildSummaryWarnsOpenTelegram(t *testing.T) {
	s := buildSummary(&SetupState{
		Provider:       ProviderOpenAI,
		Model:          "gpt-4o",
		ConfigTelegram: true,
		SandboxBackend: "srt",
	})
	if !strings.Contains(s, "open to all users") {
		t.Errorf("summary missing open-allowlist warning:\n%s", s)
	}
}
