package agent

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hkuds/vikingbot/internal/skills"
	"github.com/hkuds/vikingbot/internal/workspace"
)

// buildSystemPrompt assembles the system prompt for one loop run: the
// agent's own prompt, the workspace bootstrap files, durable memory, and
// the skills catalog. The workspace must already be materialized.
func buildSystemPrompt(agentPrompt, ws string, loader *skills.Loader) string {
	var sb strings.Builder

	if agentPrompt != "" {
		sb.WriteString(agentPrompt)
		sb.WriteString("\n\n")
	}

	names := append(append([]string{}, workspace.BootstrapFiles...), workspace.OptionalBootstrapFiles...)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(ws, name))
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		sb.WriteString("## " + name + "\n\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")
	}

	if data, err := os.ReadFile(filepath.Join(ws, "memory", "MEMORY.md")); err == nil {
		if content := strings.TrimSpace(string(data)); content != "" {
			sb.WriteString("## Long-term memory\n\n")
			sb.WriteString(content)
			sb.WriteString("\n\n")
		}
	}

	if loader != nil {
		if summary := loader.GetSummary(); summary != "" {
			sb.WriteString(summary)
			sb.WriteString("\n")
		}
		for _, skill := range loader.GetAlwaysLoad() {
			sb.WriteString("\n## Skill: " + skill.Name + "\n\n")
			sb.WriteString(strings.TrimSpace(skill.Content))
			sb.WriteString("\n")
		}
	}

	return strings.TrimSpace(sb.String())
}
