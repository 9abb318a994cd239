package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/websearch"
)

// WebSearchTool searches the web through the configured search backend.
type WebSearchTool struct {
	BaseTool
	cfg config.WebSearchConfig
}

// NewWebSearchTool creates a web_search tool. Backend selection happens
// per call so configuration changes apply without a restart.
func NewWebSearchTool(cfg config.WebSearchConfig) *WebSearchTool {
	return &WebSearchTool{
		BaseTool: NewBaseTool(
			"web_search",
			"Search the web. Returns a numbered list of results with title, URL and snippet.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Search query",
					},
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of results (1-10, default 5)",
						"minimum":     1,
						"maximum":     10,
					},
				},
				"required": []string{"query"},
			},
		),
		cfg: cfg,
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	query, err := GetStringParam(params, "query")
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return "", errors.New("web_search: query cannot be empty")
	}
	count := GetIntParamOr(params, "count", t.cfg.MaxResults)

	backend, err := websearch.Select(t.cfg)
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}

	results, err := backend.Search(ctx, query, count)
	if err != nil {
		return "", fmt.Errorf("web_search: %w", err)
	}
	return websearch.FormatResults(query, results), nil
}

// webFetchMaxChars caps page content returned to the model.
const webFetchMaxChars = 50000

// WebFetchTool fetches a web page and extracts readable text.
type WebFetchTool struct {
	BaseTool
	client *http.Client
}

// NewWebFetchTool creates a web_fetch tool.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		BaseTool: NewBaseTool(
			"web_fetch",
			"Fetch a web page and extract its readable text content.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "URL to fetch (http or https only)",
					},
				},
				"required": []string{"url"},
			},
		),
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("too many redirects (max 5)")
				}
				return nil
			},
		},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	rawURL, err := GetStringParam(params, "url")
	if err != nil {
		return "", fmt.Errorf("web_fetch: %w", err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("web_fetch: invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("web_fetch: only http and https URLs are supported")
	}
	if isInternalHost(parsed.Hostname()) {
		return "", errors.New("web_fetch: access to internal/private network addresses is blocked")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("web_fetch: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VikingBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web_fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web_fetch: HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	var title, content string
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		title, content, err = extractReadableText(resp.Body)
		if err != nil {
			return "", fmt.Errorf("web_fetch: failed to extract content: %w", err)
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(resp.Body, webFetchMaxChars))
		if err != nil {
			return "", fmt.Errorf("web_fetch: failed to read response: %w", err)
		}
		content = string(body)
	}

	truncated := len(content) > webFetchMaxChars
	if truncated {
		content = content[:webFetchMaxChars]
	}

	var sb strings.Builder
	sb.WriteString("URL: " + rawURL + "\n")
	if finalURL := resp.Request.URL.String(); finalURL != rawURL {
		sb.WriteString("Redirected to: " + finalURL + "\n")
	}
	if title != "" {
		sb.WriteString("Title: " + title + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(content)
	if truncated {
		sb.WriteString("\n\n[Content truncated]")
	}
	return sb.String(), nil
}

// extractReadableText pulls the page title and main textual content out
// of an HTML document, skipping navigation and boilerplate.
func extractReadableText(r io.Reader) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, footer, header, aside, noscript, iframe, form").Remove()

	// Prefer explicit content containers over the whole body.
	var root *goquery.Selection
	for _, selector := range []string{"article", "main", "[role=main]", "#content", ".content", "body"} {
		if sel := doc.Find(selector); sel.Length() > 0 {
			root = sel.First()
			break
		}
	}
	if root == nil {
		root = doc.Find("body")
	}

	var sb strings.Builder
	root.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, th").Each(func(i int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(el) {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n" + text + "\n")
		case "li":
			sb.WriteString("- " + text + "\n")
		default:
			sb.WriteString(text + "\n")
		}
	})

	if sb.Len() == 0 {
		// No block structure found; collapse whatever text remains.
		return title, strings.Join(strings.Fields(root.Text()), " "), nil
	}
	return title, strings.TrimSpace(sb.String()), nil
}

// isInternalHost reports whether a hostname resolves to a loopback,
// private, link-local, or cloud-metadata address. Resolution failures are
// allowed through so the HTTP layer can produce a clearer error.
func isInternalHost(hostname string) bool {
	if hostname == "" {
		return true
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return false
	}

	metadataIP := net.ParseIP("169.254.169.254")
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return true
		}
		if ip.Equal(metadataIP) {
			return true
		}
	}
	return false
}
