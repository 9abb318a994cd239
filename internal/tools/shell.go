package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/hkuds/vikingbot/internal/sandbox"
)

// ShellTool runs shell commands in the session's sandbox. When the
// sandbox is disabled it falls back to guarded execution on the host,
// confined to the workspace directory.
type ShellTool struct {
	BaseTool
	manager    *sandbox.Manager
	sessionKey string
	workspace  string
}

// NewShellTool creates a shell tool bound to one session.
func NewShellTool(manager *sandbox.Manager, sessionKey, workspace string) *ShellTool {
	return &ShellTool{
		BaseTool: NewBaseTool(
			"shell",
			"Run a shell command in the session sandbox. Returns combined stdout/stderr and the exit code.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"command": map[string]interface{}{
						"type":        "string",
						"description": "Shell command to execute",
					},
				},
				"required": []string{"command"},
			},
		),
		manager:    manager,
		sessionKey: sessionKey,
		workspace:  workspace,
	}
}

func (t *ShellTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	command, err := GetStringParam(params, "command")
	if err != nil {
		return "", fmt.Errorf("shell: %w", err)
	}

	inst, err := t.manager.GetSandbox(ctx, t.sessionKey)
	if errors.Is(err, sandbox.ErrDisabled) {
		return t.executeOnHost(ctx, command)
	}
	if err != nil {
		return "", fmt.Errorf("shell: %w", err)
	}

	result, err := inst.Execute(ctx, command, t.manager.ExecTimeout())
	if err != nil {
		return "", fmt.Errorf("shell: %w", err)
	}
	return result.Output(), nil
}

// executeOnHost runs the command directly, guarded against destructive
// patterns since no sandbox contains it.
func (t *ShellTool) executeOnHost(ctx context.Context, command string) (string, error) {
	if reason := sandbox.GuardCommand(command); reason != "" {
		return "", fmt.Errorf("shell: %s", reason)
	}

	execCtx, cancel := context.WithTimeout(ctx, t.manager.ExecTimeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = t.workspace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	result := &sandbox.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else if execCtx.Err() != nil {
			return "", fmt.Errorf("shell: command timeout after %v", t.manager.ExecTimeout())
		} else {
			return "", fmt.Errorf("shell: %w", runErr)
		}
	}
	return result.Output(), nil
}
