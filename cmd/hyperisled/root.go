// Package main provides the CLI entrypoint for the hyperisled daemon.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coni-eng/HyperIsle-sub002/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		configPath string
		logLevel   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "hyperisled",
	Short: "Island coordination daemon",
	Long: `hyperisled arbitrates notification, call, media, timer, and navigation
events into a single floating island.

Events arrive over D-Bus (com.conieng.HyperIsle1); the daemon decides which
one owns the island, parks displaced islands for resume, and guards against
stale or duplicate bridge signals.

Running hyperisled without a subcommand starts the daemon.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := globalOpts.configPath
		if path == "" {
			var err error
			path, err = config.Path()
			if err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
		}
		globalOpts.configPath = path

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		setupLogger()
		return nil
	},
	// Default to the daemon when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/hyperisle/hyperisled.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
}

// setupLogger configures the global slog logger from config and flags.
func setupLogger() {
	name := cfg.Logging.Level
	if globalOpts.logLevel != "" {
		name = globalOpts.logLevel
	}

	level := slog.LevelInfo
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
