package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/hkuds/vikingbot/internal/config"
)

// dockerWorkDir is where the session workspace is mounted inside the
// container.
const dockerWorkDir = "/workspace"

// dockerBackend runs commands in a long-lived container with the session
// workspace bind-mounted. Domain-level network policies cannot be enforced
// at the container boundary; when one is configured a warning is logged
// and networking is left enabled.
type dockerBackend struct {
	cfg       config.SandboxConfig
	key       string
	workspace string

	client      *client.Client
	containerID string
	running     bool
	mu          sync.RWMutex
}

func newDockerBackend(cfg config.SandboxConfig, key, workspace string) (Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("sandbox %q: failed to create Docker client: %w", key, err)
	}
	return &dockerBackend{
		cfg:       cfg,
		key:       key,
		workspace: workspace,
		client:    cli,
	}, nil
}

func (b *dockerBackend) Workspace() string { return b.workspace }

func (b *dockerBackend) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Start creates and starts the container.
func (b *dockerBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("sandbox %q: already started", b.key)
	}

	if len(b.cfg.Network.AllowedDomains) > 0 || len(b.cfg.Network.DeniedDomains) > 0 {
		log.Printf("[sandbox:%s] docker backend cannot enforce domain policies; networking left enabled", b.key)
	}

	if err := b.ensureImage(ctx); err != nil {
		return fmt.Errorf("sandbox %q: failed to ensure image: %w", b.key, err)
	}

	containerCfg := &container.Config{
		Image:      b.cfg.Image,
		WorkingDir: dockerWorkDir,
		Tty:        false,
		Cmd:        []string{"sleep", "infinity"},
	}
	hostCfg := &container.HostConfig{
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges:true"},
		AutoRemove:     true,
		Tmpfs: map[string]string{
			"/tmp": "rw,nosuid,size=64m",
		},
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: b.workspace,
			Target: dockerWorkDir,
		}},
	}

	resp, err := b.client.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return fmt.Errorf("sandbox %q: failed to create container: %w", b.key, err)
	}
	b.containerID = resp.ID

	if err := b.client.ContainerStart(ctx, b.containerID, container.StartOptions{}); err != nil {
		_ = b.client.ContainerRemove(ctx, b.containerID, container.RemoveOptions{Force: true})
		b.containerID = ""
		return fmt.Errorf("sandbox %q: failed to start container: %w", b.key, err)
	}

	b.running = true
	log.Printf("[sandbox:%s] container started (workspace %s)", b.key, b.workspace)
	return nil
}

// ensureImage pulls the image if it does not exist locally.
func (b *dockerBackend) ensureImage(ctx context.Context) error {
	if _, _, err := b.client.ImageInspectWithRaw(ctx, b.cfg.Image); err == nil {
		return nil
	}

	reader, err := b.client.ImagePull(ctx, b.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", b.cfg.Image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", b.cfg.Image, err)
	}
	return nil
}

// Execute runs a shell command in the container. extraPaths is ignored:
// mounts are fixed at container creation.
func (b *dockerBackend) Execute(ctx context.Context, command string, timeout time.Duration, extraPaths []string) (*ExecResult, error) {
	b.mu.RLock()
	if !b.running {
		b.mu.RUnlock()
		return nil, ErrNotStarted{Key: b.key}
	}
	containerID := b.containerID
	b.mu.RUnlock()

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execResp, err := b.client.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          []string{"sh", "-c", command},
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   dockerWorkDir,
	})
	if err != nil {
		return nil, fmt.Errorf("sandbox %q: failed to create exec: %w", b.key, err)
	}

	attachResp, err := b.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("sandbox %q: failed to attach to exec: %w", b.key, err)
	}
	defer attachResp.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	outputDone := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, attachResp.Reader)
		outputDone <- err
	}()

	select {
	case err := <-outputDone:
		if err != nil {
			return nil, fmt.Errorf("sandbox %q: failed to read output: %w", b.key, err)
		}
	case <-execCtx.Done():
		return nil, ErrExecTimeout{Key: b.key, Timeout: timeout}
	}

	inspectResp, err := b.client.ContainerExecInspect(execCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("sandbox %q: failed to inspect exec: %w", b.key, err)
	}

	return &ExecResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: inspectResp.ExitCode,
	}, nil
}

// Stop stops and removes the container, then closes the client.
func (b *dockerBackend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		timeout := int(srtStopGrace / time.Second)
		if err := b.client.ContainerStop(ctx, b.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
			_ = b.client.ContainerRemove(ctx, b.containerID, container.RemoveOptions{Force: true})
		}
		b.running = false
		b.containerID = ""
		log.Printf("[sandbox:%s] container stopped", b.key)
	}

	return b.client.Close()
}
