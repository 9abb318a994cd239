package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/providers"
	"github.com/hkuds/vikingbot/internal/session"
)

func TestConsolidateCompressesLongSession(t *testing.T) {
	provider := &scriptedProvider{responses: []*providers.ChatResponse{
		textResponse("done"),
		textResponse("## Summary\nWe planned the trip itinerary.\n\n## Durable facts\nUser prefers morning departures."),
	}}
	a, queue := newTestAgent(t, provider)

	sess := a.sessions.GetOrCreate("telegram:main:9")
	for i := 0; i < consolidateAfterMessages; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		sess.AddMessage(role, fmt.Sprintf("message %d", i))
	}

	a.Process(context.Background(), bus.InboundMessage{
		Channel: "telegram:main", SenderID: "u1", ChatID: "9", Content: "one more thing",
	})
	consumeReply(t, queue)

	if len(provider.requests) != 2 {
		t.Fatalf("requests = %d, want reply + consolidation", len(provider.requests))
	}
	if len(provider.requests[1].Tools) != 0 {
		t.Error("consolidation request should not offer tools")
	}

	if got := sess.MessageCount(); got > 10 {
		t.Errorf("history not compressed: %d messages remain", got)
	}
	if !strings.Contains(sess.GetSummary(), "planned the trip itinerary") {
		t.Errorf("summary = %q", sess.GetSummary())
	}

	ws := filepath.Join(a.cfg.SandboxParentPath(), "telegram_main_9")
	memory, err := os.ReadFile(filepath.Join(ws, "memory", "MEMORY.md"))
	if err != nil {
		t.Fatalf("read MEMORY.md: %v", err)
	}
	if !strings.Contains(string(memory), "morning departures") {
		t.Errorf("MEMORY.md missing extracted fact:\n%s", memory)
	}

	history, err := os.ReadFile(filepath.Join(ws, "memory", "HISTORY.md"))
	if err != nil {
		t.Fatalf("read HISTORY.md: %v", err)
	}
	if !strings.Contains(string(history), "compressed") {
		t.Errorf("HISTORY.md missing compress event:\n%s", history)
	}
}

func TestConsolidateSkipsShortSessions(t *testing.T) {
	provider := &scriptedProvider{responses: []*providers.ChatResponse{textResponse("hi")}}
	a, queue := newTestAgent(t, provider)

	a.Process(context.Background(), bus.InboundMessage{
		Channel: "telegram:main", SenderID: "u1", ChatID: "5", Content: "hello",
	})
	consumeReply(t, queue)

	if len(provider.requests) != 1 {
		t.Errorf("requests = %d, short sessions should not consolidate", len(provider.requests))
	}
}

func TestSplitConsolidation(t *testing.T) {
	summary, facts := splitConsolidation("## Summary\nDiscussed deployment.\n\n## Durable facts\nStaging deploys on Fridays.")
	if summary != "Discussed deployment." {
		t.Errorf("summary = %q", summary)
	}
	if facts != "Staging deploys on Fridays." {
		t.Errorf("facts = %q", facts)
	}

	summary, facts = splitConsolidation("just a blob of text")
	if summary != "just a blob of text" || facts != "" {
		t.Errorf("unmarked response: summary=%q facts=%q", summary, facts)
	}

	summary, facts = splitConsolidation("")
	if summary != "" || facts != "" {
		t.Errorf("empty response: summary=%q facts=%q", summary, facts)
	}
}

func TestRenderTranscript(t *testing.T) {
	got := renderTranscript([]session.Message{
		{Role: "user", Content: "list the files"},
		{Role: "assistant", ToolCalls: []session.ToolCallInfo{{ID: "c1", Name: "list_dir", Arguments: "{}"}}},
		{Role: "tool", Name: "list_dir", ToolCallID: "c1", Content: "a.txt\nb.txt"},
		{Role: "assistant", Content: "two files"},
	})

	for _, want := range []string{"user: list the files", "[called list_dir]", "[tool list_dir returned a result]", "assistant: two files"} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "a.txt") {
		t.Error("tool output should not be inlined into the transcript")
	}
}
