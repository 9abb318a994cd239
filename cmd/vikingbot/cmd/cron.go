package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/cron"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage scheduled prompts",
	Long: `Add, list, and remove scheduled prompts. A running gateway picks up
changes on its next restart; jobs added while the gateway is running
take effect immediately inside that process only.`,
}

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScheduler()
		if err != nil {
			return err
		}
		jobs := s.ListJobs()
		if len(jobs) == 0 {
			fmt.Println("No scheduled jobs.")
			return nil
		}
		for _, job := range jobs {
			state := "enabled"
			if !job.Enabled {
				state = "disabled"
			}
			fmt.Printf("%s  [%s]  %q -> %s  (%s)\n", job.ID, job.Schedule, job.Prompt, job.TargetSessionKey, state)
		}
		return nil
	},
}

var cronAddCmd = &cobra.Command{
	Use:   "add <schedule> <prompt> <session-key>",
	Short: "Add a scheduled job",
	Long: `Add a job. The schedule is either a 5-field cron expression or an
interval like "@every 30m". The session key names the conversation the
prompt runs in, e.g. "telegram:main:123456789".`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScheduler()
		if err != nil {
			return err
		}
		id, err := s.AddJob(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Job %s added.\n", id)
		return nil
	},
}

var cronRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScheduler()
		if err != nil {
			return err
		}
		if err := s.RemoveJob(args[0]); err != nil {
			return err
		}
		fmt.Printf("Job %s removed.\n", args[0])
		return nil
	},
}

var cronEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScheduler()
		if err != nil {
			return err
		}
		return s.EnableJob(args[0])
	},
}

var cronDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a scheduled job without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadScheduler()
		if err != nil {
			return err
		}
		return s.DisableJob(args[0])
	},
}

// loadScheduler returns a scheduler with the persisted jobs loaded but
// no timers running; used for one-shot CLI edits of the job file.
func loadScheduler() (*cron.Scheduler, error) {
	s := cron.NewScheduler(bus.NewMessageBus(1))
	if err := s.LoadJobs(); err != nil {
		return nil, fmt.Errorf("failed to load cron jobs: %w", err)
	}
	return s, nil
}

func init() {
	cronCmd.AddCommand(cronListCmd)
	cronCmd.AddCommand(cronAddCmd)
	cronCmd.AddCommand(cronRemoveCmd)
	cronCmd.AddCommand(cronEnableCmd)
	cronCmd.AddCommand(cronDisableCmd)
}
