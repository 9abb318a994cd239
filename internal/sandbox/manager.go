package sandbox

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/session"
	"github.com/hkuds/vikingbot/internal/workspace"
)

// sharedKey is the instance key used when the manager runs in shared mode.
const sharedKey = "shared"

// Instance is one managed sandbox bound to a session. All execution goes
// through Execute, which serializes commands: the child protocol has no
// request IDs, so at most one may be in flight per instance.
type Instance struct {
	Key string

	backend   Backend
	execMu    sync.Mutex
	startOnce sync.Once
	startErr  error
}

// Execute runs a shell command in the sandbox, one at a time per instance.
func (i *Instance) Execute(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error) {
	i.execMu.Lock()
	defer i.execMu.Unlock()
	return i.backend.Execute(ctx, command, timeout, nil)
}

// Workspace returns the host directory backing the sandbox.
func (i *Instance) Workspace() string {
	return i.backend.Workspace()
}

// IsRunning reports whether the instance can accept commands.
func (i *Instance) IsRunning() bool {
	return i.backend.IsRunning()
}

// Manager owns the sandbox instances for all sessions. In per-session mode
// each session key gets its own instance with a workspace under the
// sandbox parent directory; in shared mode every session maps to one
// instance keyed "shared".
type Manager struct {
	cfg          config.SandboxConfig
	parent       string
	materializer *workspace.Materializer

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewManager creates a sandbox manager. parent is the directory under
// which per-session workspaces are created; materializer populates each
// new workspace with the bootstrap fileset.
func NewManager(cfg config.SandboxConfig, parent string, materializer *workspace.Materializer) *Manager {
	return &Manager{
		cfg:          cfg,
		parent:       parent,
		materializer: materializer,
		instances:    make(map[string]*Instance),
	}
}

// ExecTimeout returns the configured per-command timeout.
func (m *Manager) ExecTimeout() time.Duration {
	if m.cfg.ExecTimeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(m.cfg.ExecTimeout) * time.Second
}

// GetSandbox returns the started instance for a session, creating it on
// first use. Creation is serialized per key; a failed start is forgotten
// so a later call can retry.
func (m *Manager) GetSandbox(ctx context.Context, sessionKey string) (*Instance, error) {
	if !m.cfg.Enabled {
		return nil, ErrDisabled
	}

	key := sessionKey
	if m.cfg.Mode == "shared" {
		key = sharedKey
	}

	m.mu.Lock()
	inst, ok := m.instances[key]
	if !ok {
		ws := filepath.Join(m.parent, session.SanitizeKey(key))
		backend, err := NewBackend(m.cfg, key, ws)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		inst = &Instance{Key: key, backend: backend}
		m.instances[key] = inst
	}
	m.mu.Unlock()

	inst.startOnce.Do(func() {
		inst.startErr = m.startInstance(ctx, inst)
	})
	if inst.startErr != nil {
		m.mu.Lock()
		if m.instances[key] == inst {
			delete(m.instances, key)
		}
		m.mu.Unlock()
		return nil, inst.startErr
	}
	return inst, nil
}

// startInstance brings a new instance up and materializes its workspace.
func (m *Manager) startInstance(ctx context.Context, inst *Instance) error {
	ws := inst.backend.Workspace()
	if err := os.MkdirAll(ws, 0755); err != nil {
		return fmt.Errorf("sandbox %q: create workspace: %w", inst.Key, err)
	}

	if err := inst.backend.Start(ctx); err != nil {
		return err
	}

	if m.materializer != nil {
		if err := m.materializer.Materialize(ws); err != nil {
			inst.backend.Stop(ctx)
			return fmt.Errorf("sandbox %q: materialize workspace: %w", inst.Key, err)
		}
	}
	return nil
}

// CleanupSession stops and removes the instance for a session. A no-op
// when none exists.
func (m *Manager) CleanupSession(ctx context.Context, sessionKey string) error {
	key := sessionKey
	if m.cfg.Mode == "shared" {
		key = sharedKey
	}

	m.mu.Lock()
	inst, ok := m.instances[key]
	delete(m.instances, key)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return inst.backend.Stop(ctx)
}

// CleanupAll stops every instance, the shared one included, giving each a
// bounded grace period.
func (m *Manager) CleanupAll(ctx context.Context) {
	m.mu.Lock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.instances = make(map[string]*Instance)
	m.mu.Unlock()

	for _, inst := range instances {
		stopCtx, cancel := context.WithTimeout(ctx, srtStopGrace+time.Second)
		if err := inst.backend.Stop(stopCtx); err != nil {
			log.Printf("[sandbox:%s] stop failed: %v", inst.Key, err)
		}
		cancel()
	}
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}
