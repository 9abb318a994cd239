package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkuds/vikingbot/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive setup wizard",
	Long:  "Configure the LLM provider, channels, sandbox, and web search interactively.",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := tui.RunSetup()
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	fmt.Println()
	tui.ShowQuickStatus(cfg)
	fmt.Println()
	fmt.Println("You can now:")
	fmt.Println("  - Start the gateway: vikingbot gateway")
	fmt.Println("  - View full status:  vikingbot status")
	return nil
}
