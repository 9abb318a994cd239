package sandbox

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/session"
)

const (
	// srtStartupTimeout bounds the wait for the child's ready and
	// initialized messages.
	srtStartupTimeout = 10 * time.Second

	// srtResponseBuffer is added on top of the command timeout when
	// waiting for the child's executed message.
	srtResponseBuffer = 5 * time.Second

	// srtStopGrace is how long a reset is given before the child is
	// killed.
	srtStopGrace = 5 * time.Second

	// srtMaxLine bounds a single protocol line from the child.
	srtMaxLine = 4 * 1024 * 1024
)

type srtState int

const (
	srtCreated srtState = iota
	srtStarting
	srtIdle
	srtExecuting
	srtStopping
	srtStopped
	srtFailed
)

// srtMessage is one line of the child protocol, parent- or child-bound.
// Unused fields stay at their zero value for any given type.
type srtMessage struct {
	Type string `json:"type"`

	// parent → child
	Config  *srtPolicy `json:"config,omitempty"`
	Command string     `json:"command,omitempty"`
	Timeout int64      `json:"timeout,omitempty"` // milliseconds

	// child → parent
	Stdout     string   `json:"stdout,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	ExitCode   int      `json:"exitCode,omitempty"`
	Violations []string `json:"violations,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// srtPolicy is the sandbox policy sent with initialize and persisted to
// the per-session settings file.
type srtPolicy struct {
	Network    srtNetworkPolicy    `json:"network"`
	Filesystem srtFilesystemPolicy `json:"filesystem"`
}

type srtNetworkPolicy struct {
	AllowedDomains    []string `json:"allowedDomains"`
	DeniedDomains     []string `json:"deniedDomains"`
	AllowLocalBinding bool     `json:"allowLocalBinding"`
}

type srtFilesystemPolicy struct {
	DenyRead   []string `json:"denyRead"`
	AllowWrite []string `json:"allowWrite"`
	DenyWrite  []string `json:"denyWrite"`
}

// srtBackend drives a sandbox runtime child process over newline-delimited
// JSON on stdin/stdout. Stderr is drained into the log. Callers must not
// interleave Execute calls; the protocol has no request IDs.
type srtBackend struct {
	cfg       config.SandboxConfig
	key       string
	workspace string

	mu    sync.Mutex
	state srtState
	cmd   *exec.Cmd
	stdin io.WriteCloser

	responses chan srtMessage
	exited    chan struct{} // closed once the child process is reaped

	// stale counts answers to abandoned executes still owed by the
	// child. The child serializes requests, so the first stale answers
	// on the response queue are discarded before a fresh one is taken.
	stale int
}

func newSRTBackend(cfg config.SandboxConfig, key, workspace string) (Backend, error) {
	if len(cfg.SRTCommand) == 0 {
		return nil, fmt.Errorf("sandbox %q: srtCommand is not configured", key)
	}
	return &srtBackend{
		cfg:       cfg,
		key:       key,
		workspace: workspace,
		state:     srtCreated,
		responses: make(chan srtMessage, 16),
		exited:    make(chan struct{}),
	}, nil
}

func (b *srtBackend) Workspace() string { return b.workspace }

func (b *srtBackend) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == srtIdle || b.state == srtExecuting
}

// Start spawns the child, waits for its ready message, and initializes it
// with the session policy.
func (b *srtBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.state != srtCreated {
		b.mu.Unlock()
		return fmt.Errorf("sandbox %q: already started", b.key)
	}
	b.state = srtStarting
	b.mu.Unlock()

	policy := b.buildPolicy()
	settingsPath, err := b.writeSettings(policy)
	if err != nil {
		b.fail()
		return err
	}

	args := append(append([]string{}, b.cfg.SRTCommand[1:]...), settingsPath)
	cmd := exec.Command(b.cfg.SRTCommand[0], args...)
	cmd.Dir = b.workspace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.fail()
		return fmt.Errorf("sandbox %q: stdin pipe: %w", b.key, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.fail()
		return fmt.Errorf("sandbox %q: stdout pipe: %w", b.key, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.fail()
		return fmt.Errorf("sandbox %q: stderr pipe: %w", b.key, err)
	}

	if err := cmd.Start(); err != nil {
		b.fail()
		return fmt.Errorf("sandbox %q: failed to start runtime: %w", b.key, err)
	}

	b.mu.Lock()
	b.cmd = cmd
	b.stdin = stdin
	b.mu.Unlock()

	go b.readLoop(stdout)
	go b.drainStderr(stderr)
	go func() {
		cmd.Wait()
		close(b.exited)
	}()

	// Handshake: ready, then initialize, then initialized.
	msg, err := b.await(ctx, srtStartupTimeout)
	if err != nil {
		b.shutdownNow()
		return fmt.Errorf("sandbox %q: waiting for ready: %w", b.key, err)
	}
	if msg.Type != "ready" {
		b.shutdownNow()
		return ErrProtocol{Key: b.key, Detail: fmt.Sprintf("expected ready, got %q", msg.Type)}
	}

	if err := b.send(srtMessage{Type: "initialize", Config: &policy}); err != nil {
		b.shutdownNow()
		return err
	}

	msg, err = b.await(ctx, srtStartupTimeout)
	if err != nil {
		b.shutdownNow()
		return fmt.Errorf("sandbox %q: waiting for initialized: %w", b.key, err)
	}
	for _, w := range msg.Warnings {
		log.Printf("[sandbox:%s] init warning: %s", b.key, w)
	}
	switch msg.Type {
	case "initialized":
	case "initialize_failed":
		b.shutdownNow()
		return fmt.Errorf("sandbox %q: initialize failed: %s", b.key, strings.Join(msg.Errors, "; "))
	default:
		b.shutdownNow()
		return ErrProtocol{Key: b.key, Detail: fmt.Sprintf("expected initialized, got %q", msg.Type)}
	}

	b.mu.Lock()
	b.state = srtIdle
	b.mu.Unlock()
	log.Printf("[sandbox:%s] runtime started (workspace %s)", b.key, b.workspace)
	return nil
}

// Execute runs one shell command in the child. The caller (the Manager)
// must serialize calls.
func (b *srtBackend) Execute(ctx context.Context, command string, timeout time.Duration, extraPaths []string) (*ExecResult, error) {
	// pwd is answered without a round trip: the child's view of the
	// filesystem is rooted at the workspace.
	if strings.TrimSpace(command) == "pwd" {
		return &ExecResult{Stdout: "/", ExitCode: 0}, nil
	}

	b.mu.Lock()
	if b.state != srtIdle {
		b.mu.Unlock()
		return nil, ErrNotStarted{Key: b.key}
	}
	b.state = srtExecuting
	b.mu.Unlock()

	req := srtMessage{
		Type:    "execute",
		Command: command,
		Timeout: timeout.Milliseconds(),
	}
	if len(extraPaths) > 0 {
		policy := b.buildPolicy()
		policy.Filesystem.AllowWrite = appendUnique(policy.Filesystem.AllowWrite, extraPaths...)
		req.Config = &policy
	}

	if err := b.send(req); err != nil {
		b.fail()
		return nil, err
	}

	msg, err := b.await(ctx, timeout+srtResponseBuffer)
	if err != nil {
		_, timedOut := err.(ErrExecTimeout)
		if timedOut || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// The caller gave up but the child is still healthy. Abandon
			// the call, not the sandbox: the child's eventual answer is
			// discarded before the next execute is accepted.
			b.abandonExec()
			if timedOut {
				return nil, ErrExecTimeout{Key: b.key, Timeout: timeout}
			}
			return nil, err
		}
		b.fail()
		return nil, err
	}

	switch msg.Type {
	case "executed":
		for _, v := range msg.Violations {
			log.Printf("[sandbox:%s] policy violation: %s", b.key, v)
		}
		b.mu.Lock()
		if b.state == srtExecuting {
			b.state = srtIdle
		}
		b.mu.Unlock()
		return &ExecResult{
			Stdout:     msg.Stdout,
			Stderr:     msg.Stderr,
			ExitCode:   msg.ExitCode,
			Violations: msg.Violations,
		}, nil
	case "error":
		b.fail()
		return nil, ErrProtocol{Key: b.key, Detail: msg.Message}
	default:
		b.fail()
		return nil, ErrProtocol{Key: b.key, Detail: fmt.Sprintf("expected executed, got %q", msg.Type)}
	}
}

// Stop requests a graceful reset and kills the child if it does not exit
// within the grace period.
func (b *srtBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state == srtStopped || b.state == srtCreated {
		b.state = srtStopped
		b.mu.Unlock()
		return nil
	}
	b.state = srtStopping
	cmd := b.cmd
	b.mu.Unlock()

	if cmd == nil {
		b.mu.Lock()
		b.state = srtStopped
		b.mu.Unlock()
		return nil
	}

	// Best effort: the child may already be gone.
	b.send(srtMessage{Type: "reset"})

	select {
	case <-b.exited:
	case <-time.After(srtStopGrace):
		log.Printf("[sandbox:%s] reset grace expired, killing runtime", b.key)
		cmd.Process.Kill()
		<-b.exited
	case <-ctx.Done():
		cmd.Process.Kill()
		<-b.exited
	}

	b.mu.Lock()
	b.state = srtStopped
	b.mu.Unlock()
	log.Printf("[sandbox:%s] runtime stopped", b.key)
	return nil
}

// buildPolicy derives the child policy from configuration, always allowing
// writes to the workspace and /tmp.
func (b *srtBackend) buildPolicy() srtPolicy {
	fs := b.cfg.Filesystem
	allowWrite := appendUnique(append([]string{}, fs.AllowWrite...), b.workspace, "/tmp")
	return srtPolicy{
		Network: srtNetworkPolicy{
			AllowedDomains:    emptyIfNil(b.cfg.Network.AllowedDomains),
			DeniedDomains:     emptyIfNil(b.cfg.Network.DeniedDomains),
			AllowLocalBinding: b.cfg.Network.AllowLocalBinding,
		},
		Filesystem: srtFilesystemPolicy{
			DenyRead:   emptyIfNil(fs.DenyRead),
			AllowWrite: allowWrite,
			DenyWrite:  emptyIfNil(fs.DenyWrite),
		},
	}
}

// writeSettings persists the session policy next to the other sandbox
// settings files so the runtime (and the operator) can inspect it.
func (b *srtBackend) writeSettings(policy srtPolicy) (string, error) {
	dir := config.SandboxSettingsDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("sandbox %q: create settings dir: %w", b.key, err)
	}

	path := filepath.Join(dir, session.SanitizeKey(b.key)+"-srt-settings.json")
	data, err := json.MarshalIndent(policy, "", "  ")
	if err != nil {
		return "", fmt.Errorf("sandbox %q: marshal settings: %w", b.key, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("sandbox %q: write settings: %w", b.key, err)
	}
	return path, nil
}

// readLoop splits the child's stdout on newlines, parses each line as
// JSON, and pushes it onto the response queue. On EOF or parse failure the
// backend is marked failed so pending and future calls error out.
func (b *srtBackend) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), srtMaxLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg srtMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			log.Printf("[sandbox:%s] unparseable message from runtime: %v", b.key, err)
			b.fail()
			return
		}
		b.responses <- msg
	}

	b.mu.Lock()
	stopping := b.state == srtStopping || b.state == srtStopped
	b.mu.Unlock()
	if !stopping {
		log.Printf("[sandbox:%s] runtime closed its output unexpectedly", b.key)
		b.fail()
	}
}

func (b *srtBackend) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), srtMaxLine)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			log.Printf("[sandbox:%s] stderr: %s", b.key, line)
		}
	}
}

// send marshals a protocol message and writes it as one line to the
// child's stdin.
func (b *srtBackend) send(msg srtMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("sandbox %q: marshal request: %w", b.key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stdin == nil {
		return ErrNotStarted{Key: b.key}
	}
	if _, err := b.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("sandbox %q: write request: %w", b.key, err)
	}
	return nil
}

// await returns the next fresh response from the child, or an error on
// timeout, child exit, or context cancellation. Answers owed to abandoned
// executes are skipped.
func (b *srtBackend) await(ctx context.Context, timeout time.Duration) (srtMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case msg := <-b.responses:
			if b.discardStale() {
				continue
			}
			return msg, nil
		case <-b.exited:
			// Drain anything the reader queued before EOF.
			select {
			case msg := <-b.responses:
				if b.discardStale() {
					continue
				}
				return msg, nil
			default:
			}
			return srtMessage{}, ErrProtocol{Key: b.key, Detail: "runtime exited"}
		case <-timer.C:
			return srtMessage{}, ErrExecTimeout{Key: b.key, Timeout: timeout}
		case <-ctx.Done():
			return srtMessage{}, ctx.Err()
		}
	}
}

// abandonExec returns the backend to idle after a caller gave up on an
// execute, marking the child's eventual answer for discard.
func (b *srtBackend) abandonExec() {
	b.mu.Lock()
	b.stale++
	if b.state == srtExecuting {
		b.state = srtIdle
	}
	b.mu.Unlock()
}

// discardStale consumes one stale-answer credit if any is outstanding.
func (b *srtBackend) discardStale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stale > 0 {
		b.stale--
		return true
	}
	return false
}

func (b *srtBackend) fail() {
	b.mu.Lock()
	b.state = srtFailed
	b.mu.Unlock()
}

// shutdownNow kills the child after a failed handshake.
func (b *srtBackend) shutdownNow() {
	b.mu.Lock()
	cmd := b.cmd
	b.state = srtFailed
	b.mu.Unlock()
	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			dst = append(dst, v)
			seen[v] = true
		}
	}
	return dst
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
