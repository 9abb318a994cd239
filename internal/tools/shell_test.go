package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/sandbox"
)

func hostShellTool(t *testing.T) *ShellTool {
	t.Helper()
	cfg := config.DefaultConfig().Sandbox
	cfg.Enabled = false
	ws := t.TempDir()
	return NewShellTool(sandbox.NewManager(cfg, t.TempDir(), nil), "telegram:1", ws)
}

func TestShellHostFallback(t *testing.T) {
	tool := hostShellTool(t)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("output = %q", out)
	}
}

func TestShellHostFallbackExitCode(t *testing.T) {
	tool := hostShellTool(t)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo oops >&2; exit 3"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "[stderr]") || !strings.Contains(out, "oops") {
		t.Errorf("stderr missing: %q", out)
	}
	if !strings.Contains(out, "[exit code: 3]") {
		t.Errorf("exit code missing: %q", out)
	}
}

func TestShellHostFallbackGuarded(t *testing.T) {
	tool := hostShellTool(t)

	_, err := tool.Execute(context.Background(), map[string]interface{}{"command": "rm -rf /"})
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("destructive command not blocked: %v", err)
	}
}

func TestShellHostFallbackTimeout(t *testing.T) {
	cfg := config.DefaultConfig().Sandbox
	cfg.Enabled = false
	cfg.ExecTimeout = 1
	tool := NewShellTool(sandbox.NewManager(cfg, t.TempDir(), nil), "telegram:1", t.TempDir())

	_, err := tool.Execute(context.Background(), map[string]interface{}{"command": "sleep 5"})
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("error %v should contain \"timeout\"", err)
	}
}
