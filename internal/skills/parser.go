package skills

import (
	"os"
	"strings"
)

// ParseSkillFile parses a SKILL.md file into a Skill. The parser extracts
// the title from the first # heading, the description from the first
// paragraph after it, and the always-load flag from an HTML comment
// directive anywhere in the file.
func ParseSkillFile(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSkillContent(string(content), path), nil
}

// ParseSkillContent parses skill content from a string.
func ParseSkillContent(content, path string) *Skill {
	lines := strings.Split(content, "\n")
	return &Skill{
		Title:       parseTitle(lines),
		Description: parseDescription(lines),
		Content:     content,
		Path:        path,
		AlwaysLoad:  parseAlwaysLoad(content),
	}
}

// parseTitle extracts the title from the first # heading.
func parseTitle(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimPrefix(trimmed, "# ")
		}
	}
	return ""
}

// parseDescription extracts the first paragraph after the title heading.
func parseDescription(lines []string) string {
	foundTitle := false
	inDescription := false
	var descLines []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !foundTitle {
			if strings.HasPrefix(trimmed, "# ") {
				foundTitle = true
			}
			continue
		}

		if !inDescription {
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "#") {
				break
			}
			inDescription = true
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			break
		}
		descLines = append(descLines, trimmed)
	}

	return strings.Join(descLines, " ")
}

// parseAlwaysLoad checks for an always-load HTML comment directive.
func parseAlwaysLoad(content string) bool {
	lower := strings.ToLower(content)
	for _, pattern := range []string{
		"<!-- always-load -->",
		"<!-- always_load -->",
		"<!--always-load-->",
		"<!--always_load-->",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
