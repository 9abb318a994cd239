package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vikingbot",
	Short: "VikingBot - multi-channel chat assistant gateway",
	Long: `VikingBot is a self-hosted chat assistant gateway. It connects chat
channels (Telegram) to an LLM tool loop and runs the agent's shell
commands inside per-session sandboxes.`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cronCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}
