package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const ddgsEndpoint = "https://html.duckduckgo.com/html/"

// DDGS scrapes the DuckDuckGo HTML endpoint. It needs no API key and is
// the fallback when no keyed backend is configured.
type DDGS struct {
	client *http.Client
}

// NewDDGS creates a DuckDuckGo backend.
func NewDDGS() *DDGS {
	return &DDGS{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DDGS) Name() string { return "ddgs" }

func (d *DDGS) IsAvailable() bool { return true }

func (d *DDGS) Search(ctx context.Context, query string, count int) ([]Result, error) {
	count = clampCount(count)

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ddgsEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("ddgs: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VikingBot/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ddgs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ddgs: returned status %d", resp.StatusCode)
	}

	results, err := parseDDGSResults(resp.Body, count)
	if err != nil {
		return nil, fmt.Errorf("ddgs: failed to parse results: %w", err)
	}
	return results, nil
}

// parseDDGSResults extracts results from the DuckDuckGo HTML page.
func parseDDGSResults(r io.Reader, count int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		link := s.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveDDGSLink(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < count
	})
	return results, nil
}

// resolveDDGSLink unwraps DuckDuckGo's redirect links, which carry the
// target in a uddg query parameter.
func resolveDDGSLink(href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if parsed.Scheme == "" {
		return "https:" + href
	}
	return href
}
