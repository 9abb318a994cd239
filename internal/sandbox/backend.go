// Package sandbox provides isolated command execution for agent sessions.
// Two backends are supported: "srt", which drives a sandbox runtime child
// process over a newline-delimited JSON protocol, and "docker", which runs
// commands inside a long-lived container. A Manager owns one backend
// instance per session (or a single shared one) and serializes execution
// against each instance.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hkuds/vikingbot/internal/config"
)

// MaxOutputLength caps the combined output returned from a sandboxed
// command. Longer output is cut and annotated with a truncation marker.
const MaxOutputLength = 10000

// ExecResult is the outcome of one sandboxed command.
type ExecResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Violations []string // policy violations reported by the runtime
}

// Output renders the result the way tool output is shown to the model:
// stdout first, stderr and a non-zero exit code appended, the whole thing
// capped at MaxOutputLength.
func (r *ExecResult) Output() string {
	var sb strings.Builder
	sb.WriteString(r.Stdout)
	if r.Stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[stderr]\n")
		sb.WriteString(r.Stderr)
	}
	if r.ExitCode != 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[exit code: %d]", r.ExitCode))
	}
	for _, v := range r.Violations {
		sb.WriteString(fmt.Sprintf("\n[policy violation: %s]", v))
	}

	out := sb.String()
	if out == "" {
		return "(no output)"
	}
	return TruncateOutput(out)
}

// TruncateOutput cuts s at MaxOutputLength and appends a marker noting how
// many characters were dropped.
func TruncateOutput(s string) string {
	if len(s) <= MaxOutputLength {
		return s
	}
	return s[:MaxOutputLength] + fmt.Sprintf("… (truncated, %d more chars)", len(s)-MaxOutputLength)
}

// Backend is a single sandbox instance bound to one workspace directory.
// Callers must serialize Execute calls; the Manager does this with a
// per-instance lock.
type Backend interface {
	// Start brings the sandbox up. Must be called once before Execute.
	Start(ctx context.Context) error

	// Execute runs a shell command inside the sandbox. timeout bounds the
	// command itself; extraPaths are additional write-allowed paths merged
	// into the filesystem policy for this call.
	Execute(ctx context.Context, command string, timeout time.Duration, extraPaths []string) (*ExecResult, error)

	// Stop tears the sandbox down, attempting a graceful shutdown first.
	Stop(ctx context.Context) error

	// IsRunning reports whether the sandbox can accept commands.
	IsRunning() bool

	// Workspace returns the host directory mounted as the sandbox's
	// working directory.
	Workspace() string
}

// Constructor builds a backend for one session. key identifies the
// session (used for settings files and logging); workspace is the host
// directory the sandbox works in.
type Constructor func(cfg config.SandboxConfig, key, workspace string) (Backend, error)

var backends = map[string]Constructor{}

// register adds a backend constructor. Backends are registered once, in
// this package's init below; duplicate names panic.
func register(name string, ctor Constructor) {
	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("sandbox: backend %q registered twice", name))
	}
	backends[name] = ctor
}

func init() {
	register("srt", newSRTBackend)
	register("docker", newDockerBackend)
}

// NewBackend builds the configured backend for a session.
func NewBackend(cfg config.SandboxConfig, key, workspace string) (Backend, error) {
	ctor, ok := backends[cfg.Backend]
	if !ok {
		return nil, ErrUnsupportedBackend{Name: cfg.Backend}
	}
	return ctor(cfg, key, workspace)
}
