// Package agent drives the LLM tool loop. The dispatcher consumes
// inbound messages from the bus, serializes them per session, and runs
// each through iterations of "ask the model, execute its tool calls"
// until the model answers with plain text, which is enqueued outbound.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/providers"
	"github.com/hkuds/vikingbot/internal/sandbox"
	"github.com/hkuds/vikingbot/internal/session"
	"github.com/hkuds/vikingbot/internal/skills"
	"github.com/hkuds/vikingbot/internal/subagent"
	"github.com/hkuds/vikingbot/internal/tools"
	"github.com/hkuds/vikingbot/internal/workspace"
)

// iterationLimitMessage is returned when a loop exhausts its tool-call
// budget without producing a final answer.
const iterationLimitMessage = "I hit my tool iteration limit before finishing. Here is where I got to; ask me to continue if you want me to keep going."

// Agent owns the conversation dispatcher and the tool loop.
type Agent struct {
	cfg           *config.Config
	provider      providers.Provider
	sessions      *session.Manager
	sandboxes     *sandbox.Manager
	queue         *bus.MessageBus
	materializer  *workspace.Materializer
	builtinSkills string

	mu      sync.Mutex
	workers map[string]chan bus.InboundMessage
	wg      sync.WaitGroup
}

// New creates an agent. builtinSkills may be empty when the bot ships no
// built-in skills directory.
func New(cfg *config.Config, provider providers.Provider, sessions *session.Manager,
	sandboxes *sandbox.Manager, queue *bus.MessageBus, materializer *workspace.Materializer,
	builtinSkills string) *Agent {
	return &Agent{
		cfg:           cfg,
		provider:      provider,
		sessions:      sessions,
		sandboxes:     sandboxes,
		queue:         queue,
		materializer:  materializer,
		builtinSkills: builtinSkills,
		workers:       make(map[string]chan bus.InboundMessage),
	}
}

// Run consumes the inbound queue until ctx is cancelled. Messages for
// the same session are processed one at a time in arrival order;
// different sessions run in parallel.
func (a *Agent) Run(ctx context.Context) {
	log.Printf("[agent] dispatcher started")
	for {
		msg, err := a.queue.ConsumeInboundWithTimeout(ctx, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			continue
		}
		a.dispatch(ctx, msg)
	}

	a.mu.Lock()
	for _, ch := range a.workers {
		close(ch)
	}
	a.workers = make(map[string]chan bus.InboundMessage)
	a.mu.Unlock()
	a.wg.Wait()
	log.Printf("[agent] dispatcher stopped")
}

// dispatch hands a message to its session's worker, creating the worker
// on first use. A full session backlog blocks the dispatcher, pushing
// backpressure onto the inbound queue rather than losing the message.
func (a *Agent) dispatch(ctx context.Context, msg bus.InboundMessage) {
	key := sessionKeyFor(msg)

	a.mu.Lock()
	ch, ok := a.workers[key]
	if !ok {
		ch = make(chan bus.InboundMessage, 16)
		a.workers[key] = ch
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			for m := range ch {
				a.Process(ctx, m)
			}
		}()
	}
	a.mu.Unlock()

	select {
	case ch <- msg:
	case <-ctx.Done():
	}
}

// sessionKeyFor maps a message to its session. Cron prompts carry the
// target session key in ChatID so they join the conversation they are
// scheduled for.
func sessionKeyFor(msg bus.InboundMessage) string {
	if strings.HasPrefix(msg.Channel, "cron:") {
		return msg.ChatID
	}
	return msg.SessionKey()
}

// Process runs one inbound message through the tool loop and enqueues
// the reply. Exported for one-shot callers; the dispatcher is the normal
// entry point.
func (a *Agent) Process(ctx context.Context, msg bus.InboundMessage) {
	key := sessionKeyFor(msg)
	sess := a.sessions.GetOrCreate(key)

	if !strings.HasPrefix(msg.Channel, "cron:") {
		sess.RecordOrigin(msg.Channel, msg.ChatID)
	}
	replyChannel, replyChatID := sess.Origin()

	loopCtx := sess.LoopContext(ctx)
	if a.cfg.Agents.Defaults.MaxTurnSeconds > 0 {
		var cancel context.CancelFunc
		loopCtx, cancel = context.WithTimeout(loopCtx, time.Duration(a.cfg.Agents.Defaults.MaxTurnSeconds)*time.Second)
		defer cancel()
	}

	reply, err := a.runSessionLoop(loopCtx, sess, msg.Content, replyChannel, replyChatID)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			// Session deleted mid-loop; nobody is listening anymore.
			log.Printf("[agent] session %s: loop cancelled", key)
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Printf("[agent] session %s: turn deadline exceeded", key)
			reply = "That took longer than I'm allowed to spend on one turn. Try breaking the request into smaller steps."
		default:
			log.Printf("[agent] session %s: loop failed: %v", key, err)
			reply = fmt.Sprintf("Something went wrong while handling that: %v", err)
		}
	}

	if reply != "" && replyChannel != "" {
		a.queue.PublishOutbound(bus.OutboundMessage{
			Channel: replyChannel,
			ChatID:  replyChatID,
			Content: reply,
		})
	}

	if err := a.sessions.Save(sess); err != nil {
		log.Printf("[agent] session %s: save failed: %v", key, err)
	}
}

// runSessionLoop appends the user message to the session and iterates
// with the primary agent configuration until the model answers in text.
func (a *Agent) runSessionLoop(ctx context.Context, sess *session.Session, content, replyChannel, replyChatID string) (string, error) {
	ws, loader, err := a.prepareWorkspace(sess.Key)
	if err != nil {
		return "", err
	}

	agentCfg := a.primaryConfig()
	systemPrompt := buildSystemPrompt(agentCfg.SystemPrompt, ws, loader)
	registry := a.buildTools(agentCfg, sess.Key, ws, replyChannel, replyChatID)

	sess.AddMessage("user", content)

	defaults := a.cfg.Agents.Defaults
	for i := 0; i < defaults.MaxToolIterations; i++ {
		messages := a.assembleMessages(systemPrompt, sess)

		resp, err := a.provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages,
			Tools:       registry.Definitions(),
			Model:       agentCfg.Model,
			MaxTokens:   defaults.MaxTokens,
			Temperature: agentCfg.Temperature,
		})
		if err != nil {
			return "", err
		}

		if !resp.HasToolCalls() {
			sess.AddMessage("assistant", resp.Content)
			a.maybeConsolidate(sess, ws)
			return resp.Content, nil
		}

		sess.AddToolCall(resp.Content, toToolCallInfo(resp.ToolCalls))
		for _, tc := range resp.ToolCalls {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			result := a.executeTool(ctx, registry, tc)
			sess.AddToolResult(tc.ID, tc.Name, result)
		}
	}

	sess.AddMessage("assistant", iterationLimitMessage)
	a.maybeConsolidate(sess, ws)
	return iterationLimitMessage, nil
}

// Spawn runs a fresh, ephemeral loop under a named sub-agent
// configuration and returns the specialist's final text. The sub-agent
// shares the caller's workspace but not its conversation history.
func (a *Agent) Spawn(ctx context.Context, agentName, prompt, sessionKey, ws string, loader *skills.Loader) (string, error) {
	agentCfg, err := subagent.Get(agentName, a.cfg.Agents.Defaults.Model)
	if err != nil {
		return "", err
	}

	systemPrompt := buildSystemPrompt(agentCfg.SystemPrompt, ws, loader)
	registry := a.buildTools(agentCfg, sessionKey, ws, "", "")

	messages := []providers.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	defaults := a.cfg.Agents.Defaults
	for i := 0; i < defaults.MaxToolIterations; i++ {
		resp, err := a.provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages,
			Tools:       registry.Definitions(),
			Model:       agentCfg.Model,
			MaxTokens:   defaults.MaxTokens,
			Temperature: agentCfg.Temperature,
		})
		if err != nil {
			return "", err
		}

		if !resp.HasToolCalls() {
			return resp.Content, nil
		}

		messages = append(messages, providers.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			result := a.executeTool(ctx, registry, tc)
			messages = append(messages, providers.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}
	return iterationLimitMessage, nil
}

// prepareWorkspace materializes (lazily) and returns the session's
// workspace along with its discovered skills.
func (a *Agent) prepareWorkspace(sessionKey string) (string, *skills.Loader, error) {
	ws := filepath.Join(a.cfg.SandboxParentPath(), session.SanitizeKey(sessionKey))
	if a.cfg.Sandbox.Enabled && a.cfg.Sandbox.Mode == "shared" {
		ws = filepath.Join(a.cfg.SandboxParentPath(), "shared")
	}

	if err := a.materializer.Materialize(ws); err != nil {
		return "", nil, fmt.Errorf("materialize workspace: %w", err)
	}

	loader := skills.NewLoader(ws)
	loader.SetBuiltinPath(a.builtinSkills)
	if err := loader.Discover(); err != nil {
		return "", nil, fmt.Errorf("discover skills: %w", err)
	}
	return ws, loader, nil
}

// primaryConfig is the default agent configuration for user-facing
// conversations.
func (a *Agent) primaryConfig() *subagent.AgentConfig {
	return &subagent.AgentConfig{
		Name:        "primary",
		Mode:        subagent.ModePrimary,
		Model:       a.cfg.Agents.Defaults.Model,
		Temperature: a.cfg.Agents.Defaults.Temperature,
	}
}

// buildTools assembles the tool catalog for one loop, honoring the agent
// configuration's disabled set.
func (a *Agent) buildTools(agentCfg *subagent.AgentConfig, sessionKey, ws, replyChannel, replyChatID string) *tools.Registry {
	registry := tools.NewRegistry()
	add := func(t tools.Tool) {
		if !agentCfg.IsToolDisabled(t.Name()) {
			registry.MustRegister(t)
		}
	}

	add(tools.NewReadFileTool(ws))
	add(tools.NewWriteFileTool(ws))
	add(tools.NewEditFileTool(ws))
	add(tools.NewListDirTool(ws))
	add(tools.NewShellTool(a.sandboxes, sessionKey, ws))
	add(tools.NewWebSearchTool(a.cfg.Tools.Web.Search))
	add(tools.NewWebFetchTool())
	add(tools.NewMessageTool(func(msg bus.OutboundMessage) error {
		a.queue.PublishOutbound(msg)
		return nil
	}, replyChannel, replyChatID))

	// Sub-agents never spawn further sub-agents.
	if agentCfg.Mode == subagent.ModePrimary {
		add(tools.NewSpawnTool(func(ctx context.Context, name, prompt string) (string, error) {
			loader := skills.NewLoader(ws)
			loader.SetBuiltinPath(a.builtinSkills)
			if err := loader.Discover(); err != nil {
				return "", err
			}
			return a.Spawn(ctx, name, prompt, sessionKey, ws, loader)
		}))
	}

	if p, ok := a.provider.(*providers.OpenAIProvider); ok {
		add(tools.NewGenerateImageTool(p.Client(), a.cfg.Tools.Image, ws))
	}

	return registry
}

// executeTool runs one tool call, converting failures into readable
// strings the model can react to.
func (a *Agent) executeTool(ctx context.Context, registry *tools.Registry, tc providers.ToolCall) string {
	result, err := registry.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		return "Error: " + err.Error()
	}
	if result == "" {
		return "(no output)"
	}
	return result
}

// assembleMessages builds the wire history for one completion: system
// prompt, the rolling summary of compressed-away turns, then the trimmed
// session history.
func (a *Agent) assembleMessages(systemPrompt string, sess *session.Session) []providers.ChatMessage {
	messages := []providers.ChatMessage{{Role: "system", Content: systemPrompt}}

	if summary := sess.GetSummary(); summary != "" {
		messages = append(messages, providers.ChatMessage{
			Role:    "system",
			Content: "Summary of the earlier conversation:\n" + summary,
		})
	}

	history := session.TrimHistory(sess.GetMessages(), a.cfg.Agents.Defaults.MaxHistoryTokens)
	for _, msg := range history {
		messages = append(messages, toChatMessage(msg))
	}
	return messages
}

// toChatMessage converts a persisted session message to the provider
// format, re-inflating tool-call arguments from their stored JSON.
func toChatMessage(msg session.Message) providers.ChatMessage {
	out := providers.ChatMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		Name:       msg.Name,
	}
	for _, tc := range msg.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			args = map[string]interface{}{}
		}
		out.ToolCalls = append(out.ToolCalls, providers.ToolCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: args,
		})
	}
	return out
}

// toToolCallInfo converts provider tool calls to the session's stored
// form, serializing arguments to JSON.
func toToolCallInfo(calls []providers.ToolCall) []session.ToolCallInfo {
	out := make([]session.ToolCallInfo, len(calls))
	for i, tc := range calls {
		args, err := json.Marshal(tc.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		out[i] = session.ToolCallInfo{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: string(args),
		}
	}
	return out
}
