// Package websearch provides pluggable web search backends for the
// web_search tool. Three backends are supported: Exa and Brave, which
// need API keys, and ddgs, a keyless DuckDuckGo HTML scraper. In
// automatic mode the first available backend wins, in the fixed order
// exa, brave, ddgs.
package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/hkuds/vikingbot/internal/config"
)

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Backend performs web searches through one provider.
type Backend interface {
	// Name identifies the backend ("exa", "brave", "ddgs").
	Name() string

	// IsAvailable reports whether the backend can be used (e.g. its API
	// key is configured).
	IsAvailable() bool

	// Search returns up to count results for the query.
	Search(ctx context.Context, query string, count int) ([]Result, error)
}

// Select picks the backend for the given configuration. An explicit
// backend name must be available; the empty name selects the first
// available backend in priority order.
func Select(cfg config.WebSearchConfig) (Backend, error) {
	candidates := []Backend{
		NewExa(cfg.ExaAPIKey),
		NewBrave(cfg.BraveAPIKey),
		NewDDGS(),
	}

	if cfg.Backend != "" {
		for _, b := range candidates {
			if b.Name() != cfg.Backend {
				continue
			}
			if !b.IsAvailable() {
				return nil, fmt.Errorf("web search backend %q is not available (missing API key?)", cfg.Backend)
			}
			return b, nil
		}
		return nil, fmt.Errorf("unknown web search backend %q", cfg.Backend)
	}

	for _, b := range candidates {
		if b.IsAvailable() {
			return b, nil
		}
	}
	return nil, fmt.Errorf("no web search backend available")
}

// FormatResults renders search results the way tool output is shown to
// the model.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return "No results found for the query."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Search results for %q:\n\n", query))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Title))
		sb.WriteString(fmt.Sprintf("   URL: %s\n", r.URL))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// clampCount bounds a requested result count to 1..10, defaulting to 5.
func clampCount(count int) int {
	if count <= 0 {
		return 5
	}
	if count > 10 {
		return 10
	}
	return count
}
