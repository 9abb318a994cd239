package session

import (
	"context"
	"sync"
	"time"
)

// Message represents a single message in a conversation
type Message struct {
	Role       string         `json:"role"` // user, assistant, system, tool
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	ToolCalls  []ToolCallInfo `json:"toolCalls,omitempty"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	Name       string         `json:"name,omitempty"` // for tool results
}

// ToolCallInfo contains information about a tool call made by the assistant
type ToolCallInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Session represents a conversation session with history
type Session struct {
	Key       string                 `json:"key"` // channel:chatId
	Messages  []Message              `json:"messages"`
	Summary   string                 `json:"summary,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`

	mu sync.RWMutex

	// cancel aborts any agent loop running on behalf of this session.
	// Set lazily via LoopContext; invoked on delete.
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewSession creates a new session with the given key
func NewSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  make(map[string]interface{}),
	}
}

// Origin returns the channel and chat ID this session replies to.
// It prefers the origin recorded in metadata (set when a real inbound
// message was dispatched to the session) and falls back to parsing the
// session key. Synthetic channels such as "cron:*" never overwrite a
// recorded origin.
func (s *Session) Origin() (channel, chatID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ch, ok := s.Metadata["channel"].(string); ok && ch != "" {
		chat, _ := s.Metadata["chatId"].(string)
		return ch, chat
	}
	return ParseKey(s.Key)
}

// RecordOrigin stores the channel and chat ID of a real inbound message
// so later synthetic messages (cron prompts) can resolve a reply target.
func (s *Session) RecordOrigin(channel, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Metadata == nil {
		s.Metadata = make(map[string]interface{})
	}
	s.Metadata["channel"] = channel
	s.Metadata["chatId"] = chatID
}

// AddMessage adds a new message with the given role and content
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// AddToolCall adds an assistant message carrying tool calls
func (s *Session) AddToolCall(content string, toolCalls []ToolCallInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now(),
		ToolCalls: toolCalls,
	})
	s.UpdatedAt = time.Now()
}

// AddToolResult adds a tool result message
func (s *Session) AddToolResult(toolCallID, name, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:       "tool",
		Content:    result,
		Timestamp:  time.Now(),
		ToolCallID: toolCallID,
		Name:       name,
	})
	s.UpdatedAt = time.Now()
}

// GetHistory returns the last maxMessages messages from the session.
// If maxMessages <= 0, returns all messages.
func (s *Session) GetHistory(maxMessages int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if maxMessages <= 0 || maxMessages >= len(s.Messages) {
		result := make([]Message, len(s.Messages))
		copy(result, s.Messages)
		return result
	}

	start := len(s.Messages) - maxMessages
	result := make([]Message, maxMessages)
	copy(result, s.Messages[start:])
	return result
}

// GetMessages returns a copy of all messages
func (s *Session) GetMessages() []Message {
	return s.GetHistory(0)
}

// GetSummary returns the rolling summary of compressed-away history.
func (s *Session) GetSummary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Summary
}

// Clear removes all messages from the session
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = make([]Message, 0)
	s.Summary = ""
	s.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages in the session
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// LoopContext derives a context for an agent loop run on this session.
// Deleting the session cancels the returned context at the loop's next
// suspension point. Any previous loop context is cancelled first: one
// in-flight loop per session.
func (s *Session) LoopContext(parent context.Context) context.Context {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx
}

// CancelLoop aborts any in-flight agent loop attached via LoopContext.
func (s *Session) CancelLoop() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SessionInfo provides summary information about a session
type SessionInfo struct {
	Key          string                 `json:"key"`
	MessageCount int                    `json:"messageCount"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Info returns summary information about the session. The metadata map
// is copied so callers never observe later mutations.
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var meta map[string]interface{}
	if len(s.Metadata) > 0 {
		meta = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			meta[k] = v
		}
	}

	return SessionInfo{
		Key:          s.Key,
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Metadata:     meta,
	}
}
