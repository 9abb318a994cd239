package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/workspace"
)

// fakeBackend records lifecycle calls and echoes commands back.
type fakeBackend struct {
	workspace string

	mu      sync.Mutex
	started bool
	stopped bool
}

func newFakeBackend(cfg config.SandboxConfig, key, ws string) (Backend, error) {
	return &fakeBackend{workspace: ws}, nil
}

func (f *fakeBackend) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeBackend) Execute(ctx context.Context, command string, timeout time.Duration, extraPaths []string) (*ExecResult, error) {
	return &ExecResult{Stdout: command}, nil
}

func (f *fakeBackend) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.started = false
	return nil
}

func (f *fakeBackend) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeBackend) Workspace() string { return f.workspace }

func init() {
	register("fake", newFakeBackend)
}

func fakeManagerConfig() config.SandboxConfig {
	cfg := config.DefaultConfig().Sandbox
	cfg.Backend = "fake"
	return cfg
}

func TestManagerDisabled(t *testing.T) {
	cfg := fakeManagerConfig()
	cfg.Enabled = false
	m := NewManager(cfg, t.TempDir(), nil)

	_, err := m.GetSandbox(context.Background(), "telegram:1")
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestManagerUnsupportedBackend(t *testing.T) {
	cfg := fakeManagerConfig()
	cfg.Backend = "rocket"
	m := NewManager(cfg, t.TempDir(), nil)

	_, err := m.GetSandbox(context.Background(), "telegram:1")
	var unsupported ErrUnsupportedBackend
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}

func TestManagerPerSessionInstances(t *testing.T) {
	parent := t.TempDir()
	mat := workspace.NewMaterializer(filepath.Join(t.TempDir(), "missing"), "")
	m := NewManager(fakeManagerConfig(), parent, mat)
	ctx := context.Background()

	a, err := m.GetSandbox(ctx, "telegram:1")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}
	b, err := m.GetSandbox(ctx, "telegram:2")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}

	if a == b {
		t.Error("per-session mode must create distinct instances")
	}
	if a.Workspace() == b.Workspace() {
		t.Error("instances must not share a workspace")
	}
	if a.Workspace() != filepath.Join(parent, "telegram_1") {
		t.Errorf("workspace = %q", a.Workspace())
	}

	// Workspace is materialized on creation.
	if _, err := os.Stat(filepath.Join(a.Workspace(), "AGENTS.md")); err != nil {
		t.Errorf("workspace not materialized: %v", err)
	}

	// Repeated calls return the same instance.
	again, err := m.GetSandbox(ctx, "telegram:1")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}
	if again != a {
		t.Error("second GetSandbox returned a new instance")
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}
}

func TestManagerSharedMode(t *testing.T) {
	cfg := fakeManagerConfig()
	cfg.Mode = "shared"
	m := NewManager(cfg, t.TempDir(), nil)
	ctx := context.Background()

	a, err := m.GetSandbox(ctx, "telegram:1")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}
	b, err := m.GetSandbox(ctx, "discord:2")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}

	if a != b {
		t.Error("shared mode must return one instance for all sessions")
	}
	if a.Key != "shared" {
		t.Errorf("shared instance key = %q", a.Key)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestManagerConcurrentCreation(t *testing.T) {
	m := NewManager(fakeManagerConfig(), t.TempDir(), nil)
	ctx := context.Background()

	const n = 8
	instances := make([]*Instance, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := m.GetSandbox(ctx, "telegram:1")
			if err != nil {
				t.Errorf("GetSandbox: %v", err)
				return
			}
			instances[i] = inst
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if instances[i] != instances[0] {
			t.Fatal("concurrent GetSandbox produced distinct instances")
		}
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
}

func TestManagerCleanup(t *testing.T) {
	m := NewManager(fakeManagerConfig(), t.TempDir(), nil)
	ctx := context.Background()

	inst, err := m.GetSandbox(ctx, "telegram:1")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}
	if _, err := m.GetSandbox(ctx, "telegram:2"); err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}

	if err := m.CleanupSession(ctx, "telegram:1"); err != nil {
		t.Fatalf("CleanupSession: %v", err)
	}
	if inst.IsRunning() {
		t.Error("cleaned-up instance still running")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	// Cleaning an unknown session is a no-op.
	if err := m.CleanupSession(ctx, "telegram:999"); err != nil {
		t.Fatalf("CleanupSession unknown: %v", err)
	}

	m.CleanupAll(ctx)
	if m.Count() != 0 {
		t.Errorf("Count after CleanupAll = %d, want 0", m.Count())
	}
}

func TestInstanceExecuteSerialized(t *testing.T) {
	m := NewManager(fakeManagerConfig(), t.TempDir(), nil)
	ctx := context.Background()

	inst, err := m.GetSandbox(ctx, "telegram:1")
	if err != nil {
		t.Fatalf("GetSandbox: %v", err)
	}

	result, err := inst.Execute(ctx, "uname -a", time.Second)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Stdout != "uname -a" {
		t.Errorf("result = %q", result.Stdout)
	}
}
