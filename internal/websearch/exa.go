package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const exaEndpoint = "https://api.exa.ai/search"

// Exa searches through the Exa neural search API.
type Exa struct {
	apiKey string
	client *http.Client
}

type exaRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"numResults"`
	Type       string `json:"type"`
}

type exaResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Text  string `json:"text,omitempty"`
	} `json:"results"`
}

// NewExa creates an Exa backend with the given API key.
func NewExa(apiKey string) *Exa {
	return &Exa{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Exa) Name() string { return "exa" }

func (e *Exa) IsAvailable() bool { return e.apiKey != "" }

func (e *Exa) Search(ctx context.Context, query string, count int) ([]Result, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("exa: API key not configured")
	}
	count = clampCount(count)

	payload, err := json.Marshal(exaRequest{Query: query, NumResults: count, Type: "auto"})
	if err != nil {
		return nil, fmt.Errorf("exa: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, exaEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("exa: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("exa: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("exa: failed to parse response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		snippet := r.Text
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: snippet})
		if len(results) >= count {
			break
		}
	}
	return results, nil
}
