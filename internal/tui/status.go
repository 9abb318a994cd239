package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hkuds/vikingbot/internal/config"
)

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205")).
				MarginBottom(1).
				Padding(0, 1)

	statusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Width(60)

	statusSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginTop(1)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Width(20)

	statusValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("255"))

	statusEnabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	statusDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	statusWarningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Bold(true)
)

// ShowStatus renders the current configuration in a box.
func ShowStatus(cfg *config.Config) error {
	var sb strings.Builder

	sb.WriteString(statusTitleStyle.Render("VikingBot Configuration Status"))
	sb.WriteString("\n\n")

	sb.WriteString(statusSectionStyle.Render("Provider"))
	sb.WriteString("\n")
	sb.WriteString(renderProviderStatus(cfg))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Channels"))
	sb.WriteString("\n")
	sb.WriteString(renderChannelsStatus(cfg))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Sandbox"))
	sb.WriteString("\n")
	sb.WriteString(renderSandboxStatus(cfg))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Agent"))
	sb.WriteString("\n")
	sb.WriteString(renderAgentStatus(cfg))

	fmt.Println(statusBoxStyle.Render(sb.String()))
	return nil
}

func renderProviderStatus(cfg *config.Config) string {
	var sb strings.Builder

	name, apiKey, apiBase := cfg.GetActiveProvider()
	if name == "" {
		sb.WriteString(renderStatusRow("Status", statusErrorStyle.Render("no provider configured")))
		sb.WriteString(renderStatusRow("", statusWarningStyle.Render("Run 'vikingbot setup' to configure")))
		return sb.String()
	}

	sb.WriteString(renderStatusRow("Active", statusEnabledStyle.Render(strings.ToUpper(name))))
	sb.WriteString(renderStatusRow("Model", statusValueStyle.Render(cfg.Agents.Defaults.Model)))
	if apiBase != "" {
		sb.WriteString(renderStatusRow("API Base", statusValueStyle.Render(apiBase)))
	}
	if apiKey != "" {
		sb.WriteString(renderStatusRow("API Key", statusValueStyle.Render(maskAPIKey(apiKey))))
	}
	return sb.String()
}

func renderChannelsStatus(cfg *config.Config) string {
	var sb strings.Builder

	if cfg.Channels.Telegram.Enabled {
		sb.WriteString(renderStatusRow("Telegram", statusEnabledStyle.Render("enabled")))
		if len(cfg.Channels.Telegram.AllowFrom) > 0 {
			users := strings.Join(cfg.Channels.Telegram.AllowFrom, ", ")
			if len(users) > 30 {
				users = users[:27] + "..."
			}
			sb.WriteString(renderStatusRow("  Allowed", statusValueStyle.Render(users)))
		} else {
			sb.WriteString(renderStatusRow("  Allowed", statusWarningStyle.Render("everyone")))
		}
	} else {
		sb.WriteString(renderStatusRow("Telegram", statusDisabledStyle.Render("disabled")))
	}
	return sb.String()
}

func renderSandboxStatus(cfg *config.Config) string {
	var sb strings.Builder

	if !cfg.Sandbox.Enabled {
		sb.WriteString(renderStatusRow("Status", statusWarningStyle.Render("disabled (host execution)")))
		return sb.String()
	}

	sb.WriteString(renderStatusRow("Backend", statusEnabledStyle.Render(cfg.Sandbox.Backend)))
	sb.WriteString(renderStatusRow("Mode", statusValueStyle.Render(cfg.Sandbox.Mode)))
	sb.WriteString(renderStatusRow("Exec Timeout", statusValueStyle.Render(fmt.Sprintf("%ds", cfg.Sandbox.ExecTimeout))))
	if cfg.Sandbox.Backend == "docker" {
		sb.WriteString(renderStatusRow("Image", statusValueStyle.Render(cfg.Sandbox.Image)))
	}
	return sb.String()
}

func renderAgentStatus(cfg *config.Config) string {
	var sb strings.Builder

	d := cfg.Agents.Defaults
	sb.WriteString(renderStatusRow("Workspaces", statusValueStyle.Render(cfg.SandboxParentPath())))
	sb.WriteString(renderStatusRow("Max Tokens", statusValueStyle.Render(fmt.Sprintf("%d", d.MaxTokens))))
	sb.WriteString(renderStatusRow("Temperature", statusValueStyle.Render(fmt.Sprintf("%.1f", d.Temperature))))
	sb.WriteString(renderStatusRow("Max Iterations", statusValueStyle.Render(fmt.Sprintf("%d", d.MaxToolIterations))))
	sb.WriteString(renderStatusRow("Turn Timeout", statusValueStyle.Render(fmt.Sprintf("%ds", d.MaxTurnSeconds))))
	return sb.String()
}

func renderStatusRow(label, value string) string {
	if label == "" {
		return fmt.Sprintf("  %s\n", value)
	}
	return fmt.Sprintf("  %s %s\n", statusLabelStyle.Render(label+":"), value)
}

// maskAPIKey hides the middle of a key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// ShowQuickStatus prints a one-line summary.
func ShowQuickStatus(cfg *config.Config) {
	name, _, _ := cfg.GetActiveProvider()

	var status string
	if name == "" {
		status = statusErrorStyle.Render("not configured")
	} else {
		status = fmt.Sprintf("%s using %s",
			statusEnabledStyle.Render(strings.ToUpper(name)),
			statusValueStyle.Render(cfg.Agents.Defaults.Model),
		)
	}

	channelStatus := statusDisabledStyle.Render("no channels")
	if cfg.Channels.Telegram.Enabled {
		channelStatus = statusEnabledStyle.Render("1 channel")
	}

	fmt.Printf("VikingBot: %s | %s\n", status, channelStatus)
}
