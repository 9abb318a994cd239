package providers

import (
	"errors"

	"github.com/hkuds/vikingbot/internal/config"
)

// ErrNoProvider is returned when no LLM provider has an API key (or, for
// vLLM, a base URL) configured.
var ErrNoProvider = errors.New("no LLM provider configured: set an API key under providers in config.json")

// NewFromConfig builds the provider for the first configured entry in the
// providers section, using the agent default model.
func NewFromConfig(cfg *config.Config) (Provider, error) {
	name, apiKey, apiBase := cfg.GetActiveProvider()
	if name == "" {
		return nil, ErrNoProvider
	}
	return NewOpenAIProvider(name, apiKey, apiBase, cfg.Agents.Defaults.Model), nil
}
