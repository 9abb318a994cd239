// Package skills provides skill discovery and loading for VikingBot.
// Skills are directories containing a SKILL.md file that extend the agent
// with domain-specific knowledge; user skills in a workspace take
// precedence over built-in skills shipped with the bot.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Skill represents a loaded skill from SKILL.md.
type Skill struct {
	Name        string // Directory name
	Title       string // From # heading
	Description string // First paragraph
	Content     string // Full markdown content
	Path        string // Path to SKILL.md
	AlwaysLoad  bool   // Load in every context
}

// Loader discovers and loads skills from a workspace. Built-in skills are
// searched first so workspace skills with the same name override them.
type Loader struct {
	workspacePath string
	builtinPath   string
	skills        map[string]*Skill
	mu            sync.RWMutex
}

// NewLoader creates a skill loader rooted at the given workspace.
// The workspace's skills live under workspacePath/skills.
func NewLoader(workspacePath string) *Loader {
	return &Loader{
		workspacePath: workspacePath,
		skills:        make(map[string]*Skill),
	}
}

// SetBuiltinPath sets the path to the built-in skills directory.
func (l *Loader) SetBuiltinPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.builtinPath = path
}

// Discover finds all SKILL.md files in the built-in and workspace paths,
// replacing any previously discovered skills.
func (l *Loader) Discover() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.skills = make(map[string]*Skill)

	// Built-in first (lower priority), workspace second (overrides).
	searchPaths := []string{}
	if l.builtinPath != "" {
		searchPaths = append(searchPaths, l.builtinPath)
	}
	if l.workspacePath != "" {
		searchPaths = append(searchPaths, filepath.Join(l.workspacePath, "skills"))
	}

	for _, basePath := range searchPaths {
		l.discoverInPath(basePath)
	}
	return nil
}

// discoverInPath finds SKILL.md files under basePath. Missing or
// unreadable paths are skipped.
func (l *Loader) discoverInPath(basePath string) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		skillFile := filepath.Join(basePath, entry.Name(), "SKILL.md")
		skill, err := ParseSkillFile(skillFile)
		if err != nil {
			continue
		}

		skill.Name = entry.Name()
		l.skills[skill.Name] = skill
	}
}

// Get returns a skill by name, or nil if not found.
func (l *Loader) Get(name string) *Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.skills[name]
}

// List returns a sorted list of discovered skill names.
func (l *Loader) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.skills))
	for name := range l.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of discovered skills.
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.skills)
}

// GetAlwaysLoad returns skills marked always-load, sorted by name.
func (l *Loader) GetAlwaysLoad() []*Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var always []*Skill
	for _, skill := range l.skills {
		if skill.AlwaysLoad {
			always = append(always, skill)
		}
	}
	sort.Slice(always, func(i, j int) bool { return always[i].Name < always[j].Name })
	return always
}

// GetSummary returns a brief summary of available skills for the system
// prompt. Empty when no skills are discovered.
func (l *Loader) GetSummary() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.skills) == 0 {
		return ""
	}

	names := make([]string, 0, len(l.skills))
	for name := range l.skills {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available skills (read their SKILL.md with read_file to use them):\n")
	for _, name := range names {
		skill := l.skills[name]
		desc := skill.Description
		if len(desc) > 80 {
			desc = desc[:77] + "..."
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", name, desc))
	}
	return sb.String()
}
