// Package subagent holds the process-wide registry of named agent
// configurations. A sub-agent is a prompt-plus-restriction bundle the
// primary agent can delegate to through the spawn tool.
package subagent

import (
	"fmt"
	"sort"
	"sync"
)

// Mode distinguishes the primary agent from spawned specialists.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeSubagent Mode = "subagent"
)

// AgentConfig describes how one agent loop should run.
type AgentConfig struct {
	Name          string
	Description   string
	Mode          Mode
	Model         string // empty = inherit the caller's model
	Temperature   float64
	SystemPrompt  string
	DisabledTools []string
}

// IsToolDisabled reports whether a tool is excluded from this agent's
// catalog.
func (c *AgentConfig) IsToolDisabled(name string) bool {
	for _, t := range c.DisabledTools {
		if t == name {
			return true
		}
	}
	return false
}

// Factory builds an AgentConfig, optionally overriding the model.
type Factory func(model string) *AgentConfig

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

// Register adds a named sub-agent factory. Registering a name twice is an
// error.
func Register(name string, factory Factory) error {
	mu.Lock()
	defer mu.Unlock()

	if _, dup := registry[name]; dup {
		return fmt.Errorf("subagent %q is already registered", name)
	}
	registry[name] = factory
	return nil
}

// Get builds the configuration for a named sub-agent.
func Get(name, model string) (*AgentConfig, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown subagent %q (available: %v)", name, Names())
	}
	return factory(model), nil
}

// Names returns the registered sub-agent names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// specialistDisabledTools are withheld from every built-in specialist:
// they report back to the primary agent instead of acting on the world.
var specialistDisabledTools = []string{"write_file", "edit_file", "message", "spawn"}

const explorePrompt = `You are a codebase exploration specialist. Given a question about a
codebase or workspace, use read_file, list_dir, shell and search tools to
find the answer. You cannot modify files or message the user; report your
findings as plain text to the agent that spawned you. Be thorough but
concise: cite file paths and line-level evidence for every claim.`

const librarianPrompt = `You are a research librarian. Given a research question, use web_search
and web_fetch to find authoritative, current sources. You cannot modify
files or message the user; report back to the agent that spawned you.
Summarize what you found, cite URLs, and flag anything you could not
verify.`

func init() {
	builtins := []AgentConfig{
		{
			Name:          "explore",
			Description:   "Read-only codebase search specialist",
			SystemPrompt:  explorePrompt,
			Temperature:   0.3,
			DisabledTools: specialistDisabledTools,
		},
		{
			Name:          "librarian",
			Description:   "External research specialist",
			SystemPrompt:  librarianPrompt,
			Temperature:   0.3,
			DisabledTools: specialistDisabledTools,
		},
	}

	for _, cfg := range builtins {
		cfg := cfg
		Register(cfg.Name, func(model string) *AgentConfig {
			c := cfg
			c.Mode = ModeSubagent
			c.Model = model
			return &c
		})
	}
}
