package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
	"github.com/coni-eng/HyperIsle-sub002/internal/script"
)

var simulateOpts struct {
	scriptPath string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a YAML event script against a fresh coordinator",
	Long: `Replay a scripted event sequence on simulated time and print the
arbitration trace. Steps may assert the active key after each event,
making scripts usable as regression cases for bridge echo scenarios.

Example script:

  name: call preempts notification
  steps:
    - at: 0s
      kind: notification
      key: "0|com.chat.app|1"
      payload: {title: Alice, text: hi}
      expect: "0|com.chat.app|1"
    - at: 1s
      kind: incoming_call
      key: "call:1"
      payload: {caller: Bob}
      expect: "call:1"

Exits non-zero when any expectation misses.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateOpts.scriptPath, "script", "",
		"Path to the YAML event script (required)")
	_ = simulateCmd.MarkFlagRequired("script")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sc, err := script.Load(simulateOpts.scriptPath)
	if err != nil {
		return err
	}

	// The simulated coordinator uses the configured policies and guards so
	// scripts exercise the same arbitration the daemon runs.
	runner := script.NewRunner(island.Options{
		Logger:               logger,
		Registry:             feature.NewRegistry(cfg.FeatureConfig()),
		UserDismissedTTL:     cfg.Guards.UserDismissedTTL.Duration(),
		RemovedTTL:           cfg.Guards.RemovedTTL.Duration(),
		CallCooldown:         cfg.Guards.CallCooldown.Duration(),
		NotificationDebounce: cfg.Guards.NotificationDebounce.Duration(),
		MaxResume:            cfg.Stack.MaxResume,
	}, os.Stdout)

	res, err := runner.Run(sc)
	if err != nil {
		return err
	}
	if res.Failures > 0 {
		return fmt.Errorf("%d expectation(s) missed", res.Failures)
	}
	return nil
}
