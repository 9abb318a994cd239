package channels

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedCodeRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]*\n?)?(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicStarRe = regexp.MustCompile(`(^|[^*\w])\*([^*\n]+)\*($|[^*\w])`)
	italicUndRe  = regexp.MustCompile(`(^|[^_\w])_([^_\n]+)_($|[^_\w])`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s*`)
)

// MarkdownToTelegramHTML converts markdown to Telegram's HTML dialect:
// bold, italic, inline code, fenced code blocks, and links. Headers and
// blockquotes lose their markers; everything else is entity-escaped.
func MarkdownToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	// Pull code spans out first so markdown inside them is untouched and
	// their content is escaped exactly once.
	var code []string
	stash := func(rendered string) string {
		code = append(code, rendered)
		return fmt.Sprintf("\x00%d\x00", len(code)-1)
	}

	text = fencedCodeRe.ReplaceAllStringFunc(text, func(match string) string {
		body := fencedCodeRe.FindStringSubmatch(match)[1]
		return stash("<pre><code>" + escapeHTML(strings.TrimSpace(body)) + "</code></pre>")
	})
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(match string) string {
		body := inlineCodeRe.FindStringSubmatch(match)[1]
		return stash("<code>" + escapeHTML(body) + "</code>")
	})

	text = escapeHTML(text)
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicStarRe.ReplaceAllString(text, "$1<i>$2</i>$3")
	text = italicUndRe.ReplaceAllString(text, "$1<i>$2</i>$3")
	text = headerRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")

	for i, rendered := range code {
		text = strings.Replace(text, fmt.Sprintf("\x00%d\x00", i), rendered, 1)
	}
	return text
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}

// StripMarkdown removes markdown formatting, leaving plain text. Used as
// the fallback when Telegram rejects the HTML rendering.
func StripMarkdown(text string) string {
	if text == "" {
		return ""
	}
	text = fencedCodeRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicStarRe.ReplaceAllString(text, "$1$2$3")
	text = italicUndRe.ReplaceAllString(text, "$1$2$3")
	text = headerRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")
	return text
}
