// Package tui provides the interactive terminal surfaces: the setup
// wizard and the status display.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hkuds/vikingbot/internal/config"
)

// Provider identifies an LLM provider option in the wizard.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
	ProviderGroq       Provider = "groq"
	ProviderVLLM       Provider = "vllm"
)

// ModelOptions lists the suggested models per provider. VLLM is
// free-form: the user names whatever their server hosts.
var ModelOptions = map[Provider][]string{
	ProviderOpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4-turbo",
	},
	ProviderOpenRouter: {
		"anthropic/claude-sonnet-4",
		"openai/gpt-4o",
		"meta-llama/llama-3.1-70b-instruct",
	},
	ProviderGroq: {
		"llama-3.3-70b-versatile",
		"mixtral-8x7b-32768",
	},
	ProviderVLLM: {},
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

// SetupState accumulates the wizard's answers.
type SetupState struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	CustomModel string

	ConfigTelegram bool
	TelegramToken  string
	TelegramUsers  string

	SandboxBackend string // "srt", "docker", or "off"

	ConfigSearch  bool
	SearchBackend string
	SearchAPIKey  string

	Confirmed bool
}

// RunSetup walks the interactive wizard and saves the resulting config.
func RunSetup() (*config.Config, error) {
	state := &SetupState{
		BaseURL:        "http://localhost:8000/v1",
		SandboxBackend: "srt",
	}

	steps := []struct {
		name string
		run  func(*SetupState) error
	}{
		{"provider selection", runWelcomeStep},
		{"provider config", runProviderConfigStep},
		{"model selection", runModelSelectionStep},
		{"channels", runChannelsStep},
		{"sandbox", runSandboxStep},
		{"web search", runWebSearchStep},
		{"confirmation", runConfirmationStep},
	}
	for _, step := range steps {
		if err := step.run(state); err != nil {
			return nil, fmt.Errorf("%s step failed: %w", step.name, err)
		}
	}

	if !state.Confirmed {
		return nil, fmt.Errorf("setup cancelled by user")
	}

	cfg := buildConfigFromState(state)
	if err := config.SaveConfig(cfg, ""); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(successStyle.Render("\n✓ Configuration saved!"))
	fmt.Println(subtitleStyle.Render("Config file: " + config.GetConfigPath()))
	fmt.Println(subtitleStyle.Render("Start the gateway with: vikingbot gateway"))
	return cfg, nil
}

func runWelcomeStep(state *SetupState) error {
	banner := `
 _    ___ __    _             ____        __
| |  / (_) /__ (_)___  ____ _/ __ )____  / /_
| | / / / //_// / __ \/ __ '/ __  / __ \/ __/
| |/ / / ,<  / / / / / /_/ / /_/ / /_/ / /_
|___/_/_/|_|/_/_/ /_/\__, /_____/\____/\__/
                    /____/
`
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Render(banner))

	welcome := boxStyle.Render(
		titleStyle.Render("Welcome to VikingBot Setup") + "\n\n" +
			"This wizard configures the chat gateway.\n" +
			"You can edit the configuration later at:\n" +
			subtitleStyle.Render(config.GetConfigPath()),
	)
	fmt.Println(welcome)
	fmt.Println()

	var provider string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select your LLM provider").
				Options(
					huh.NewOption("OpenAI (GPT models)", string(ProviderOpenAI)),
					huh.NewOption("OpenRouter (multiple models, one API)", string(ProviderOpenRouter)),
					huh.NewOption("Groq (fast open models)", string(ProviderGroq)),
					huh.NewOption("vLLM / Local (self-hosted, OpenAI-compatible)", string(ProviderVLLM)),
				).
				Value(&provider),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	state.Provider = Provider(provider)
	return nil
}

func runProviderConfigStep(state *SetupState) error {
	if state.Provider == ProviderVLLM {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Server base URL").
					Description("Where your OpenAI-compatible server is listening").
					Placeholder("http://localhost:8000/v1").
					Value(&state.BaseURL),
			),
		)
		return form.Run()
	}

	placeholder := map[Provider]string{
		ProviderOpenAI:     "sk-...",
		ProviderOpenRouter: "sk-or-...",
		ProviderGroq:       "gsk_...",
	}[state.Provider]

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Enter your %s API key", state.Provider)).
				Description("Stored locally in the config file, never shared").
				Placeholder(placeholder).
				EchoMode(huh.EchoModePassword).
				Value(&state.APIKey).
				Validate(requireNonEmpty("API key")),
		),
	)
	return form.Run()
}

func runModelSelectionStep(state *SetupState) error {
	models := ModelOptions[state.Provider]

	if len(models) == 0 {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Enter model name").
					Description("The model your server hosts (e.g. llama-3.1-8b-instruct)").
					Value(&state.CustomModel).
					Validate(requireNonEmpty("model name")),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		state.Model = state.CustomModel
		return nil
	}

	options := make([]huh.Option[string], len(models))
	for i, m := range models {
		options[i] = huh.NewOption(m, m)
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select model").
				Options(options...).
				Value(&state.Model),
		),
	)
	return form.Run()
}

func runChannelsStep(state *SetupState) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Configure Telegram?").
				Description("Set up a Telegram bot for messaging").
				Value(&state.ConfigTelegram),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !state.ConfigTelegram {
		return nil
	}

	telegramForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Get this from @BotFather on Telegram").
				Placeholder("123456789:ABCdefGHIjklMNOpqrsTUVwxyz").
				EchoMode(huh.EchoModePassword).
				Value(&state.TelegramToken).
				Validate(requireNonEmpty("bot token")),
			huh.NewInput().
				Title("Allowed user IDs or usernames (optional)").
				Description("Comma-separated; leave empty to allow everyone").
				Placeholder("123456789, alice").
				Value(&state.TelegramUsers),
		),
	)
	return telegramForm.Run()
}

func runSandboxStep(state *SetupState) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Shell sandbox backend").
				Description("Where the agent's shell commands run").
				Options(
					huh.NewOption("SRT runtime (policy-enforced subprocess)", "srt"),
					huh.NewOption("Docker container", "docker"),
					huh.NewOption("None (run directly on this host)", "off"),
				).
				Value(&state.SandboxBackend),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if state.SandboxBackend == "off" {
		fmt.Println(warningStyle.Render("\nShell commands will run unsandboxed on this host."))
	}
	return nil
}

func runWebSearchStep(state *SetupState) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Configure web search?").
				Description("DuckDuckGo works without a key; Exa and Brave need one").
				Value(&state.ConfigSearch),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if !state.ConfigSearch {
		return nil
	}

	backendForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Search backend").
				Options(
					huh.NewOption("DuckDuckGo (no API key)", "ddgs"),
					huh.NewOption("Exa", "exa"),
					huh.NewOption("Brave", "brave"),
				).
				Value(&state.SearchBackend),
		),
	)
	if err := backendForm.Run(); err != nil {
		return err
	}
	if state.SearchBackend == "ddgs" {
		return nil
	}

	keyForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API key", state.SearchBackend)).
				EchoMode(huh.EchoModePassword).
				Value(&state.SearchAPIKey).
				Validate(requireNonEmpty("API key")),
		),
	)
	return keyForm.Run()
}

func runConfirmationStep(state *SetupState) error {
	fmt.Println(boxStyle.Render(buildSummary(state)))
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Yes, save").
				Negative("No, cancel").
				Value(&state.Confirmed),
		),
	)
	return form.Run()
}

func buildSummary(state *SetupState) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Configuration Summary"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Provider: %s\n", successStyle.Render(string(state.Provider))))
	sb.WriteString(fmt.Sprintf("Model: %s\n", state.Model))
	if state.Provider == ProviderVLLM {
		sb.WriteString(fmt.Sprintf("Base URL: %s\n", state.BaseURL))
	}
	sb.WriteString("\n")

	if state.ConfigTelegram {
		sb.WriteString(fmt.Sprintf("Telegram: %s\n", successStyle.Render("enabled")))
		if strings.TrimSpace(state.TelegramUsers) == "" {
			sb.WriteString(warningStyle.Render("  open to all users\n"))
		}
	} else {
		sb.WriteString(fmt.Sprintf("Telegram: %s\n", subtitleStyle.Render("disabled")))
	}

	if state.SandboxBackend == "off" {
		sb.WriteString(fmt.Sprintf("Sandbox: %s\n", warningStyle.Render("disabled (host execution)")))
	} else {
		sb.WriteString(fmt.Sprintf("Sandbox: %s\n", successStyle.Render(state.SandboxBackend)))
	}

	if state.ConfigSearch {
		sb.WriteString(fmt.Sprintf("Web search: %s\n", successStyle.Render(state.SearchBackend)))
	} else {
		sb.WriteString(fmt.Sprintf("Web search: %s\n", subtitleStyle.Render("auto")))
	}

	return sb.String()
}

// buildConfigFromState maps wizard answers onto the config structure.
func buildConfigFromState(state *SetupState) *config.Config {
	cfg := config.DefaultConfig()

	model := state.Model
	if model == "" {
		model = state.CustomModel
	}
	cfg.Agents.Defaults.Model = model

	switch state.Provider {
	case ProviderOpenAI:
		cfg.Providers.OpenAI.APIKey = state.APIKey
	case ProviderOpenRouter:
		cfg.Providers.OpenRouter.APIKey = state.APIKey
	case ProviderGroq:
		cfg.Providers.Groq.APIKey = state.APIKey
	case ProviderVLLM:
		cfg.Providers.VLLM.APIBase = state.BaseURL
	}

	if state.ConfigTelegram {
		cfg.Channels.Telegram.Enabled = true
		cfg.Channels.Telegram.Token = state.TelegramToken
		if users := strings.TrimSpace(state.TelegramUsers); users != "" {
			var allow []string
			for _, u := range strings.Split(users, ",") {
				if u = strings.TrimSpace(u); u != "" {
					allow = append(allow, u)
				}
			}
			cfg.Channels.Telegram.AllowFrom = allow
		}
	}

	switch state.SandboxBackend {
	case "off":
		cfg.Sandbox.Enabled = false
	default:
		cfg.Sandbox.Enabled = true
		cfg.Sandbox.Backend = state.SandboxBackend
	}

	if state.ConfigSearch {
		cfg.Tools.Web.Search.Backend = state.SearchBackend
		switch state.SearchBackend {
		case "exa":
			cfg.Tools.Web.Search.ExaAPIKey = state.SearchAPIKey
		case "brave":
			cfg.Tools.Web.Search.BraveAPIKey = state.SearchAPIKey
		}
	}

	return cfg
}

func requireNonEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
