package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSkill(t *testing.T, base, name, content string) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverAndPrecedence(t *testing.T) {
	workspace := t.TempDir()
	builtin := t.TempDir()

	writeSkill(t, builtin, "weather", "# Weather\n\nBuilt-in weather skill.\n")
	writeSkill(t, builtin, "notes", "# Notes\n\nBuilt-in notes skill.\n")
	writeSkill(t, filepath.Join(workspace, "skills"), "weather", "# Weather\n\nUser weather skill.\n")

	l := NewLoader(workspace)
	l.SetBuiltinPath(builtin)
	if err := l.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if l.Count() != 2 {
		t.Fatalf("expected 2 skills, got %d", l.Count())
	}

	// Workspace skill overrides the built-in one.
	weather := l.Get("weather")
	if weather == nil {
		t.Fatal("weather skill not found")
	}
	if weather.Description != "User weather skill." {
		t.Errorf("description = %q, want user version", weather.Description)
	}

	if l.Get("notes") == nil {
		t.Error("built-in notes skill should be discovered")
	}
}

func TestParseSkillContent(t *testing.T) {
	content := "# Greeter\n\nSays hello to people.\nIn two lines.\n\n## Usage\n\nRun it.\n<!-- always-load -->\n"
	skill := ParseSkillContent(content, "greeter/SKILL.md")

	if skill.Title != "Greeter" {
		t.Errorf("title = %q", skill.Title)
	}
	if skill.Description != "Says hello to people. In two lines." {
		t.Errorf("description = %q", skill.Description)
	}
	if !skill.AlwaysLoad {
		t.Error("always-load directive not detected")
	}
}

func TestGetSummary(t *testing.T) {
	workspace := t.TempDir()
	writeSkill(t, filepath.Join(workspace, "skills"), "calc", "# Calc\n\nDoes arithmetic.\n")

	l := NewLoader(workspace)
	if err := l.Discover(); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	summary := l.GetSummary()
	if summary == "" {
		t.Fatal("summary should not be empty")
	}
	if want := "calc: Does arithmetic."; !strings.Contains(summary, want) {
		t.Errorf("summary %q missing %q", summary, want)
	}
}
