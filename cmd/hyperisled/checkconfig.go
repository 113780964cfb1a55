package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, then print the effective
settings. The config was already loaded by the root command; reaching this
point means it parsed and validated.`,
	RunE: runCheckConfig,
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	fmt.Printf("config ok: %s\n", globalOpts.configPath)
	fmt.Printf("  user_dismissed_ttl:    %s\n", cfg.Guards.UserDismissedTTL.Duration())
	fmt.Printf("  removed_ttl:           %s\n", cfg.Guards.RemovedTTL.Duration())
	fmt.Printf("  call_cooldown:         %s\n", cfg.Guards.CallCooldown.Duration())
	fmt.Printf("  notification_debounce: %s\n", cfg.Guards.NotificationDebounce.Duration())
	fmt.Printf("  max_resume:            %d\n", cfg.Stack.MaxResume)
	fmt.Printf("  sweep_interval:        %s\n", cfg.Sweep.Interval.Duration())
	if len(cfg.Routes.BridgePackages) > 0 {
		fmt.Printf("  bridge_packages:       %v\n", cfg.Routes.BridgePackages)
	}
	for id := range cfg.Policies {
		fmt.Printf("  policy override:       %s\n", id)
	}
	return nil
}
