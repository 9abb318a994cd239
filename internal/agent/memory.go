package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hkuds/vikingbot/internal/providers"
	"github.com/hkuds/vikingbot/internal/session"
	"github.com/hkuds/vikingbot/internal/workspace"
)

const (
	// consolidateAfterMessages is the history length that triggers
	// compression at the end of a turn.
	consolidateAfterMessages = 60

	// consolidateTimeout bounds the summarization call. It runs on its
	// own context so a spent turn deadline cannot starve it.
	consolidateTimeout = time.Minute

	summaryMarker = "## Summary"
	factsMarker   = "## Durable facts"
)

const consolidatePrompt = `Condense the conversation transcript below.

Respond with exactly two sections:

` + summaryMarker + `
A compact summary of what was discussed and decided, detailed enough to
continue the conversation without the original messages.

` + factsMarker + `
Durable facts worth remembering across conversations (user preferences,
ongoing projects, standing instructions), one per line. Write "none" if
there are no such facts.

Transcript:

%s`

// maybeConsolidate compresses a long session history into its rolling
// summary and extracts durable facts into the workspace memory. Failures
// are logged and never fail the turn.
func (a *Agent) maybeConsolidate(sess *session.Session, ws string) {
	if sess.MessageCount() < consolidateAfterMessages {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), consolidateTimeout)
	defer cancel()

	transcript := renderTranscript(sess.GetMessages())
	resp, err := a.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.ChatMessage{
			{Role: "user", Content: fmt.Sprintf(consolidatePrompt, transcript)},
		},
		Model:     a.cfg.Agents.Defaults.Model,
		MaxTokens: a.cfg.Agents.Defaults.MaxTokens,
	})
	if err != nil {
		log.Printf("[agent] session %s: consolidation call failed: %v", sess.Key, err)
		return
	}

	summary, facts := splitConsolidation(resp.Content)
	if summary == "" {
		log.Printf("[agent] session %s: consolidation produced no summary, keeping history", sess.Key)
		return
	}

	compressed := sess.MessageCount()
	if err := a.sessions.Compress(sess.Key, summary); err != nil {
		log.Printf("[agent] session %s: compress failed: %v", sess.Key, err)
		return
	}
	if err := workspace.AppendHistory(ws, fmt.Sprintf("compressed %d messages in session %s", compressed, sess.Key)); err != nil {
		log.Printf("[agent] session %s: history log failed: %v", sess.Key, err)
	}

	if facts == "" || strings.EqualFold(facts, "none") {
		return
	}
	if err := a.sessions.Extract(sess.Key, facts, ws); err != nil {
		log.Printf("[agent] session %s: memory extract failed: %v", sess.Key, err)
		return
	}
	if err := workspace.AppendHistory(ws, fmt.Sprintf("extracted durable facts from session %s", sess.Key)); err != nil {
		log.Printf("[agent] session %s: history log failed: %v", sess.Key, err)
	}
}

// renderTranscript flattens session messages into plain text for the
// summarizer. Tool traffic is reduced to the tool names involved.
func renderTranscript(messages []session.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case "tool":
			fmt.Fprintf(&sb, "[tool %s returned a result]\n", msg.Name)
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				names := make([]string, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					names[i] = tc.Name
				}
				fmt.Fprintf(&sb, "assistant: [called %s]\n", strings.Join(names, ", "))
			}
			if msg.Content != "" {
				fmt.Fprintf(&sb, "assistant: %s\n", msg.Content)
			}
		default:
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		}
	}
	return sb.String()
}

// splitConsolidation pulls the summary and facts sections out of the
// model's response. A response without the markers is treated as all
// summary.
func splitConsolidation(content string) (summary, facts string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ""
	}

	idx := strings.Index(content, factsMarker)
	if idx >= 0 {
		facts = strings.TrimSpace(content[idx+len(factsMarker):])
		content = strings.TrimSpace(content[:idx])
	}
	summary = strings.TrimSpace(strings.TrimPrefix(content, summaryMarker))
	return summary, facts
}
