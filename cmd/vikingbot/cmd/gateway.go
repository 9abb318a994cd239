package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hkuds/vikingbot/internal/agent"
	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/channels"
	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/cron"
	"github.com/hkuds/vikingbot/internal/providers"
	"github.com/hkuds/vikingbot/internal/sandbox"
	"github.com/hkuds/vikingbot/internal/session"
	"github.com/hkuds/vikingbot/internal/workspace"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the channel gateway",
	Long:  "Start the gateway: channel adapters, the agent dispatcher, the cron scheduler, and the sandbox manager.",
	RunE:  runGateway,
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.EnsureDataDirs(); err != nil {
		return err
	}

	providerName, _, _ := cfg.GetActiveProvider()
	if providerName == "" {
		fmt.Println("No LLM provider configured.")
		fmt.Println("Run 'vikingbot setup' to configure one.")
		return nil
	}
	if !cfg.Channels.Telegram.Enabled {
		fmt.Println("No channels configured.")
		fmt.Println("Run 'vikingbot setup' to enable Telegram.")
		return nil
	}

	msgBus := bus.NewMessageBus(100)
	defer msgBus.Close()

	provider, err := providers.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	sessions := session.NewManager(config.SessionsDir())
	builtinSkills := filepath.Join(config.DataDir(), "skills")
	materializer := workspace.NewMaterializer(cfg.WorkspacePath(), builtinSkills)
	sandboxes := sandbox.NewManager(cfg.Sandbox, cfg.SandboxParentPath(), materializer)
	agentLoop := agent.New(cfg, provider, sessions, sandboxes, msgBus, materializer, builtinSkills)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chanMgr := channels.NewManager(cfg, msgBus)
	if err := chanMgr.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize channels: %w", err)
	}
	if err := chanMgr.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}

	scheduler := cron.NewScheduler(msgBus)
	if err := scheduler.Start(ctx); err != nil {
		log.Printf("[gateway] warning: cron scheduler failed to start: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		agentLoop.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		chanMgr.RunDispatcher(ctx)
	}()

	fmt.Printf("Provider: %s (model: %s)\n", providerName, cfg.Agents.Defaults.Model)
	fmt.Printf("Channels: %v\n", chanMgr.RunningChannels())
	if cfg.Sandbox.Enabled {
		fmt.Printf("Sandbox:  %s (%s)\n", cfg.Sandbox.Backend, cfg.Sandbox.Mode)
	} else {
		fmt.Println("Sandbox:  disabled (host execution)")
	}
	fmt.Println()
	fmt.Println("Gateway is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutting down gateway...")

	cancel()
	scheduler.Stop()
	if err := chanMgr.StopAll(); err != nil {
		log.Printf("[gateway] channel shutdown: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	sandboxes.CleanupAll(stopCtx)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		fmt.Println("Gateway stopped gracefully.")
	case <-time.After(10 * time.Second):
		fmt.Println("Gateway shutdown timed out.")
	}
	return nil
}
