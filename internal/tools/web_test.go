package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hkuds/vikingbot/internal/config"
)

func searchConfig() config.WebSearchConfig {
	return config.WebSearchConfig{MaxResults: 5}
}

func TestExtractReadableText(t *testing.T) {
	page := `<html><head><title>Release Notes</title></head><body>
	<nav>Home | About</nav>
	<article>
	  <h1>Version 2.0</h1>
	  <p>Faster parsing.</p>
	  <ul><li>New API</li><li>Bug fixes</li></ul>
	  <script>track();</script>
	</article>
	<footer>Copyright</footer>
	</body></html>`

	title, content, err := extractReadableText(strings.NewReader(page))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if title != "Release Notes" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"Version 2.0", "Faster parsing.", "- New API", "- Bug fixes"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	for _, unwanted := range []string{"Home | About", "track();", "Copyright"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("content should not contain %q", unwanted)
		}
	}
}

func TestWebFetchRejectsBadTargets(t *testing.T) {
	tool := NewWebFetchTool()
	ctx := context.Background()

	if _, err := tool.Execute(ctx, map[string]interface{}{"url": "ftp://example.com/file"}); err == nil {
		t.Error("non-http scheme should be rejected")
	}
	if _, err := tool.Execute(ctx, map[string]interface{}{"url": "http://127.0.0.1/admin"}); err == nil {
		t.Error("loopback address should be blocked")
	}
	if _, err := tool.Execute(ctx, map[string]interface{}{"url": "http://169.254.169.254/latest/meta-data/"}); err == nil {
		t.Error("cloud metadata address should be blocked")
	}
}

func TestWebSearchEmptyQuery(t *testing.T) {
	tool := NewWebSearchTool(searchConfig())
	if _, err := tool.Execute(context.Background(), map[string]interface{}{"query": "  "}); err == nil {
		t.Error("blank query should be rejected")
	}
}

func TestIsInternalHost(t *testing.T) {
	if !isInternalHost("localhost") {
		t.Error("localhost should be internal")
	}
	if !isInternalHost("") {
		t.Error("empty host should be internal")
	}

	// A host backed by a test server resolves to loopback.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")
	host = host[:strings.Index(host, ":")]
	if !isInternalHost(host) {
		t.Errorf("test server host %q should be internal", host)
	}
}
