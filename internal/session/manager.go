package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxHistory = 50
	sessionFileExt    = ".jsonl"

	// compressKeepTail is how many recent messages survive a Compress call.
	compressKeepTail = 10
)

// sessionMetadata is the first line of a session file
type sessionMetadata struct {
	Key       string                 `json:"key"`
	Summary   string                 `json:"summary,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Manager handles session storage and retrieval. Sessions are keyed by
// "{channel}:{chat_id}" and persisted as JSONL files under dataDir/sessions.
type Manager struct {
	sessionsDir string
	cache       map[string]*Session
	mu          sync.RWMutex
	maxHistory  int
}

// NewManager creates a new session manager with the given data directory
func NewManager(dataDir string) *Manager {
	sessionsDir := filepath.Join(dataDir, "sessions")

	if err := os.MkdirAll(sessionsDir, 0700); err != nil {
		// Operations will fail gracefully later.
		fmt.Fprintf(os.Stderr, "warning: failed to create sessions directory: %v\n", err)
	}

	return &Manager{
		sessionsDir: sessionsDir,
		cache:       make(map[string]*Session),
		maxHistory:  defaultMaxHistory,
	}
}

// SetMaxHistory sets the maximum number of messages persisted per session
func (m *Manager) SetMaxHistory(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = max
}

// GetOrCreate returns an existing session or creates a new one
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.cache[key]; ok {
		return sess
	}

	sess := m.loadFromFile(key)
	if sess == nil {
		sess = NewSession(key)
	}

	m.cache[key] = sess
	return sess
}

// Get returns a session if it exists, nil otherwise
func (m *Manager) Get(key string) *Session {
	m.mu.RLock()
	if sess, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return sess
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.cache[key]; ok {
		return sess
	}

	sess := m.loadFromFile(key)
	if sess != nil {
		m.cache[key] = sess
	}
	return sess
}

// Save persists a session to disk
func (m *Manager) Save(sess *Session) error {
	if sess == nil {
		return fmt.Errorf("cannot save nil session")
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	filePath := m.getFilePath(sess.Key)

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer file.Close()

	meta := sessionMetadata{
		Key:       sess.Key,
		Summary:   sess.Summary,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Metadata:  sess.Metadata,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if _, err := file.Write(append(metaJSON, '\n')); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	messages := sess.Messages
	if m.maxHistory > 0 && len(messages) > m.maxHistory {
		messages = messages[len(messages)-m.maxHistory:]
	}

	for _, msg := range messages {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if _, err := file.Write(append(msgJSON, '\n')); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}

	return nil
}

// Delete removes a session from cache and disk, cancelling any in-flight
// agent loop attached to it.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	sess := m.cache[key]
	delete(m.cache, key)
	m.mu.Unlock()

	if sess != nil {
		sess.CancelLoop()
	}

	filePath := m.getFilePath(key)
	if err := os.Remove(filePath); err != nil {
		return sess != nil && os.IsNotExist(err)
	}
	return true
}

// List returns information about all sessions
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []SessionInfo

	entries, err := os.ReadDir(m.sessionsDir)
	if err != nil {
		return sessions
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sessionFileExt) {
			continue
		}

		key := UnsanitizeKey(strings.TrimSuffix(entry.Name(), sessionFileExt))
		seen[key] = true

		if sess, ok := m.cache[key]; ok {
			sessions = append(sessions, sess.Info())
			continue
		}

		filePath := filepath.Join(m.sessionsDir, entry.Name())
		if info := m.loadSessionInfo(filePath); info != nil {
			sessions = append(sessions, *info)
		}
	}

	// Sessions created this run but never saved yet.
	for key, sess := range m.cache {
		if !seen[key] {
			sessions = append(sessions, sess.Info())
		}
	}

	return sessions
}

// Compress replaces the middle of a session's history with a summary,
// keeping the most recent tail. The summary text is produced by the
// caller (typically an LLM call); Compress only splices it in, taking
// care not to strand a tool result without its tool call.
func (m *Manager) Compress(key, summary string) error {
	sess := m.Get(key)
	if sess == nil {
		return fmt.Errorf("session %q not found", key)
	}

	sess.mu.Lock()
	if len(sess.Messages) > compressKeepTail {
		tail := sess.Messages[len(sess.Messages)-compressKeepTail:]
		// Never start the tail on an orphaned tool result.
		for len(tail) > 0 && tail[0].Role == "tool" {
			tail = tail[1:]
		}
		kept := make([]Message, len(tail))
		copy(kept, tail)
		sess.Messages = kept
	}
	if summary != "" {
		if sess.Summary != "" {
			sess.Summary += "\n\n" + summary
		} else {
			sess.Summary = summary
		}
	}
	sess.UpdatedAt = time.Now()
	sess.mu.Unlock()

	return m.Save(sess)
}

// Extract appends durable facts distilled from a session into the
// workspace's memory/MEMORY.md. The facts text is produced by the caller.
func (m *Manager) Extract(key, facts, workspace string) error {
	if strings.TrimSpace(facts) == "" {
		return nil
	}
	if m.Get(key) == nil {
		return fmt.Errorf("session %q not found", key)
	}

	memoryDir := filepath.Join(workspace, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	memoryPath := filepath.Join(memoryDir, "MEMORY.md")
	f, err := os.OpenFile(memoryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open MEMORY.md: %w", err)
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "\n[%s] %s\n%s\n", timestamp, key, facts); err != nil {
		return fmt.Errorf("failed to write to MEMORY.md: %w", err)
	}
	return nil
}

// Clear clears the history for a specific session
func (m *Manager) Clear(key string) error {
	sess := m.Get(key)
	if sess != nil {
		sess.Clear()
		return m.Save(sess)
	}

	filePath := m.getFilePath(key)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// getFilePath returns the file path for a session key
func (m *Manager) getFilePath(key string) string {
	return filepath.Join(m.sessionsDir, SanitizeKey(key)+sessionFileExt)
}

// loadFromFile loads a session from disk
func (m *Manager) loadFromFile(key string) *Session {
	file, err := os.Open(m.getFilePath(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil
	}

	var meta sessionMetadata
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil
	}

	sess := &Session{
		Key:       meta.Key,
		Summary:   meta.Summary,
		Messages:  make([]Message, 0),
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
		Metadata:  meta.Metadata,
	}
	if sess.Metadata == nil {
		sess.Metadata = make(map[string]interface{})
	}

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue // skip malformed lines
		}
		sess.Messages = append(sess.Messages, msg)
	}

	return sess
}

// loadSessionInfo loads only the metadata from a session file
func (m *Manager) loadSessionInfo(filePath string) *SessionInfo {
	file, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}

	var meta sessionMetadata
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil
	}

	msgCount := 0
	for scanner.Scan() {
		msgCount++
	}

	return &SessionInfo{
		Key:          meta.Key,
		MessageCount: msgCount,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		Metadata:     meta.Metadata,
	}
}
