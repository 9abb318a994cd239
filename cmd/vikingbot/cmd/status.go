package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkuds/vikingbot/internal/config"
	"github.com/hkuds/vikingbot/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return tui.ShowStatus(cfg)
}
