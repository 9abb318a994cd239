package channels

import (
	"strings"
	"testing"
)

func TestMarkdownToTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "this is **bold** text", "this is <b>bold</b> text"},
		{"italic underscore", "an _italic_ word", "an <i>italic</i> word"},
		{"italic asterisk", "an *italic* word", "an <i>italic</i> word"},
		{"inline code", "run `ls -la` now", "run <code>ls -la</code> now"},
		{"link", "see [docs](https://example.com)", `see <a href="https://example.com">docs</a>`},
		{"header stripped", "# Title\nbody", "Title\nbody"},
		{"blockquote stripped", "> quoted\nplain", "quoted\nplain"},
		{"entities escaped", "a < b && c > d", "a &lt; b &amp;&amp; c &gt; d"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarkdownToTelegramHTML(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarkdownCodeBlockPreserved(t *testing.T) {
	in := "before\n```go\nif a < b {\n\treturn **x**\n}\n```\nafter"
	got := MarkdownToTelegramHTML(in)

	if !strings.Contains(got, "<pre><code>") || !strings.Contains(got, "</code></pre>") {
		t.Fatalf("code block not rendered: %q", got)
	}
	if !strings.Contains(got, "a &lt; b") {
		t.Errorf("code content not escaped: %q", got)
	}
	if strings.Contains(got, "<b>x</b>") {
		t.Errorf("markdown inside code block must not be processed: %q", got)
	}
}

func TestMarkdownManyCodeSpans(t *testing.T) {
	var parts []string
	for i := 0; i < 12; i++ {
		parts = append(parts, "`c`")
	}
	got := MarkdownToTelegramHTML(strings.Join(parts, " "))
	if strings.Count(got, "<code>c</code>") != 12 {
		t.Errorf("expected 12 code spans: %q", got)
	}
	if strings.Contains(got, "\x00") {
		t.Errorf("placeholder leaked: %q", got)
	}
}

func TestStripMarkdown(t *testing.T) {
	in := "# Title\n**bold** and _italic_ and `code` plus [link](https://x.test)"
	want := "Title\nbold and italic and code plus link"
	if got := StripMarkdown(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 4096); len(got) != 1 || got[0] != "short" {
		t.Errorf("short message should be one chunk: %v", got)
	}

	long := strings.Repeat("line of text\n", 20)
	chunks := splitMessage(long, 50)
	for i, chunk := range chunks {
		if len(chunk) > 50 {
			t.Errorf("chunk %d exceeds limit: %d chars", i, len(chunk))
		}
	}
	joined := strings.ReplaceAll(strings.Join(chunks, ""), "\n", "")
	if joined != strings.ReplaceAll(long, "\n", "") {
		t.Errorf("content lost in split: %q", chunks)
	}

	// No newlines to break on: hard cut.
	chunks = splitMessage(strings.Repeat("x", 120), 50)
	if len(chunks) != 3 {
		t.Errorf("expected 3 hard-cut chunks, got %d", len(chunks))
	}
}
