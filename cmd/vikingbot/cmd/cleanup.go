package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/session"
)

var (
	cleanupSessions   bool
	cleanupWorkspaces bool
	cleanupAll        bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stored sessions and per-session workspaces",
	Long: `Delete persisted conversation state. With --sessions, conversation
histories are removed; with --workspaces, per-session sandbox workspaces
and their settings files are removed; --all does both. Without flags the
command only reports what exists.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupSessions, "sessions", false, "delete persisted sessions")
	cleanupCmd.Flags().BoolVar(&cleanupWorkspaces, "workspaces", false, "delete per-session workspaces and sandbox settings")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "delete sessions and workspaces")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cleanupAll {
		cleanupSessions = true
		cleanupWorkspaces = true
	}

	sessions := session.NewManager(config.SessionsDir())
	infos := sessions.List()

	if !cleanupSessions && !cleanupWorkspaces {
		fmt.Printf("Sessions:   %d (%s)\n", len(infos), config.SessionsDir())
		fmt.Printf("Workspaces: %s\n", cfg.SandboxParentPath())
		fmt.Println("\nNothing deleted. Use --sessions, --workspaces, or --all.")
		return nil
	}

	if cleanupSessions {
		deleted := 0
		for _, info := range infos {
			if sessions.Delete(info.Key) {
				deleted++
			}
		}
		fmt.Printf("Deleted %d session(s).\n", deleted)
	}

	if cleanupWorkspaces {
		if err := removeDirContents(cfg.SandboxParentPath()); err != nil {
			return fmt.Errorf("failed to remove workspaces: %w", err)
		}
		if err := removeDirContents(config.SandboxSettingsDir()); err != nil {
			return fmt.Errorf("failed to remove sandbox settings: %w", err)
		}
		fmt.Println("Removed per-session workspaces and sandbox settings.")
	}

	return nil
}

// removeDirContents deletes everything inside dir but keeps dir itself.
// A missing dir is not an error.
func removeDirContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
