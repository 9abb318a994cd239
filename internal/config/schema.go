package config

import (
	"os"
	"path/filepath"
)

// Config represents the root configuration structure for VikingBot.
type Config struct {
	Agents    AgentsConfig    `json:"agents"`
	Channels  ChannelsConfig  `json:"channels"`
	Providers ProvidersConfig `json:"providers"`
	Sandbox   SandboxConfig   `json:"sandbox"`
	Tools     ToolsConfig     `json:"tools"`
}

// AgentsConfig holds agent-related configuration with defaults.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

// AgentDefaults defines default values for agent configuration.
type AgentDefaults struct {
	Workspace         string  `json:"workspace"`
	Model             string  `json:"model"`
	MaxTokens         int     `json:"maxTokens"`
	Temperature       float64 `json:"temperature"`
	MaxToolIterations int     `json:"maxToolIterations"`
	MaxTurnSeconds    int     `json:"maxTurnSeconds"`
	MaxHistoryTokens  int     `json:"maxHistoryTokens"`
}

// ChannelsConfig holds all communication channel configurations.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig represents Telegram bot configuration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	ID        string   `json:"id"` // instance id; channel name is "telegram:{id}"
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"` // empty = allow all
}

// ProvidersConfig holds all LLM provider configurations.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	Groq       ProviderConfig `json:"groq"`
	VLLM       ProviderConfig `json:"vllm"`
}

// ProviderConfig represents an OpenAI-compatible LLM provider configuration.
type ProviderConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
}

// SandboxConfig holds isolated execution configuration.
type SandboxConfig struct {
	Enabled bool   `json:"enabled"`
	Backend string `json:"backend"` // "srt" or "docker"
	Mode    string `json:"mode"`    // "per-session" or "shared"

	// SRTCommand launches the sandbox runtime child process.
	SRTCommand []string `json:"srtCommand,omitempty"`

	// Image is the container image for the docker backend.
	Image string `json:"image,omitempty"`

	ExecTimeout int `json:"execTimeout"` // seconds

	Network    NetworkPolicy    `json:"network"`
	Filesystem FilesystemPolicy `json:"filesystem"`
}

// NetworkPolicy restricts what the sandboxed process may reach.
type NetworkPolicy struct {
	AllowedDomains    []string `json:"allowedDomains,omitempty"`
	DeniedDomains     []string `json:"deniedDomains,omitempty"`
	AllowLocalBinding bool     `json:"allowLocalBinding,omitempty"`
}

// FilesystemPolicy restricts what the sandboxed process may read or write.
type FilesystemPolicy struct {
	DenyRead   []string `json:"denyRead,omitempty"`
	AllowWrite []string `json:"allowWrite,omitempty"`
	DenyWrite  []string `json:"denyWrite,omitempty"`
}

// ToolsConfig holds tool-related configurations.
type ToolsConfig struct {
	Web   WebToolsConfig  `json:"web"`
	Image ImageToolConfig `json:"image"`
}

// WebToolsConfig represents web-related tools configuration.
type WebToolsConfig struct {
	Search WebSearchConfig `json:"search"`
}

// WebSearchConfig represents web search tool configuration.
// Backend selects "exa", "brave", "ddgs" or "" for automatic selection
// (first available in that order).
type WebSearchConfig struct {
	Backend     string `json:"backend,omitempty"`
	ExaAPIKey   string `json:"exaApiKey,omitempty"`
	BraveAPIKey string `json:"braveApiKey,omitempty"`
	MaxResults  int    `json:"maxResults"`
}

// ImageToolConfig represents the image generation tool configuration.
type ImageToolConfig struct {
	Model string `json:"model,omitempty"`
	Size  string `json:"size,omitempty"`
}

// DefaultConfig returns a new Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:         "~/.vikingbot/workspace/default",
				Model:             "gpt-4o",
				MaxTokens:         4096,
				Temperature:       0.7,
				MaxToolIterations: 25,
				MaxTurnSeconds:    300,
				MaxHistoryTokens:  32000,
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ID:        "main",
				Token:     "",
				AllowFrom: []string{},
			},
		},
		Providers: ProvidersConfig{
			OpenAI: ProviderConfig{
				APIKey:  "",
				APIBase: "https://api.openai.com/v1",
			},
			OpenRouter: ProviderConfig{
				APIKey:  "",
				APIBase: "https://openrouter.ai/api/v1",
			},
			Groq: ProviderConfig{
				APIKey:  "",
				APIBase: "https://api.groq.com/openai/v1",
			},
			VLLM: ProviderConfig{
				APIKey:  "",
				APIBase: "http://localhost:8000/v1",
			},
		},
		Sandbox: SandboxConfig{
			Enabled:     true,
			Backend:     "srt",
			Mode:        "per-session",
			SRTCommand:  []string{"srt-runtime"},
			Image:       "alpine:latest",
			ExecTimeout: 60,
			Network: NetworkPolicy{
				AllowedDomains: []string{},
				DeniedDomains:  []string{},
			},
			Filesystem: FilesystemPolicy{
				DenyRead:   []string{"~/.ssh", "~/.aws", "~/.vikingbot/config.json"},
				AllowWrite: []string{},
				DenyWrite:  []string{},
			},
		},
		Tools: ToolsConfig{
			Web: WebToolsConfig{
				Search: WebSearchConfig{
					MaxResults: 5,
				},
			},
			Image: ImageToolConfig{
				Model: "gpt-image-1",
				Size:  "1024x1024",
			},
		},
	}
}

// WorkspacePath returns the absolute path to the default workspace
// directory, expanding ~ to the user's home directory.
func (c *Config) WorkspacePath() string {
	workspace := c.Agents.Defaults.Workspace
	if workspace == "" {
		workspace = "~/.vikingbot/workspace/default"
	}
	return ExpandPath(workspace)
}

// SandboxParentPath returns the directory under which per-session
// workspaces are created.
func (c *Config) SandboxParentPath() string {
	return filepath.Join(DataDir(), "workspace")
}

// GetActiveProvider returns the first configured provider's name, API key,
// and API base URL. Providers are checked in order: OpenAI, OpenRouter,
// Groq, VLLM. Returns empty strings if none is configured.
func (c *Config) GetActiveProvider() (name string, apiKey string, apiBase string) {
	if c.Providers.OpenAI.APIKey != "" {
		return "openai", c.Providers.OpenAI.APIKey, c.Providers.OpenAI.APIBase
	}
	if c.Providers.OpenRouter.APIKey != "" {
		return "openrouter", c.Providers.OpenRouter.APIKey, c.Providers.OpenRouter.APIBase
	}
	if c.Providers.Groq.APIKey != "" {
		return "groq", c.Providers.Groq.APIKey, c.Providers.Groq.APIBase
	}
	// VLLM may work without an API key for local deployments.
	if c.Providers.VLLM.APIBase != "" {
		return "vllm", c.Providers.VLLM.APIKey, c.Providers.VLLM.APIBase
	}
	return "", "", ""
}

// ExpandPath expands ~ to the user's home directory and resolves the path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == filepath.Separator {
			path = filepath.Join(home, path[2:])
		} else {
			path = filepath.Join(home, path[1:])
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
