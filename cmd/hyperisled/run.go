package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/coni-eng/HyperIsle-sub002/internal/bridge"
	"github.com/coni-eng/HyperIsle-sub002/internal/config"
	"github.com/coni-eng/HyperIsle-sub002/internal/feature"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
	"github.com/coni-eng/HyperIsle-sub002/internal/overlay"
	"github.com/coni-eng/HyperIsle-sub002/internal/policy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the island coordination daemon",
	Long: `Run the daemon: claim com.conieng.HyperIsle1 on the session bus,
accept events from external producers, and arbitrate the floating island.

The overlay binding logs transitions; a renderer process attaches separately.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger.Info("starting hyperisled", "version", version, "config", globalOpts.configPath)

	coord := island.New(island.Options{
		Logger:               logger,
		Registry:             feature.NewRegistry(cfg.FeatureConfig()),
		UserDismissedTTL:     cfg.Guards.UserDismissedTTL.Duration(),
		RemovedTTL:           cfg.Guards.RemovedTTL.Duration(),
		CallCooldown:         cfg.Guards.CallCooldown.Duration(),
		NotificationDebounce: cfg.Guards.NotificationDebounce.Duration(),
		MaxResume:            cfg.Stack.MaxResume,
	})

	host := overlay.NewHost(overlay.NewLogSurface(logger), overlayGeometry(cfg), logger)
	coord.AddSink(func(is *island.ActiveIsland) {
		if is == nil || is.Route == policy.RouteOverlay {
			host.Apply(is)
			return
		}
		// Off-overlay routes render elsewhere; make sure our window is gone.
		host.Apply(nil)
		logger.Debug("island routed off-overlay",
			"key", is.NotificationKey, "route", is.Route.String())
	})

	srv := bridge.NewServer(coord, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start bridge server: %w", err)
	}

	// Periodic registry sweep
	sweeper := cron.New()
	interval := cfg.Sweep.Interval.Duration()
	if interval > 0 {
		_, err := sweeper.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			if n := coord.CleanupExpired(time.Now()); n > 0 {
				logger.Debug("swept expired guard entries", "count", n)
			}
		})
		if err != nil {
			_ = srv.Stop()
			return fmt.Errorf("failed to schedule sweep: %w", err)
		}
		sweeper.Start()
	}

	// Config hot reload: policy overrides and bridge routing swap live.
	// Guard windows and overlay geometry are wired at startup and apply on
	// the next run.
	watcher, err := config.NewWatcher(globalOpts.configPath, func(newCfg *config.Config) {
		coord.SetRegistry(feature.NewRegistry(newCfg.FeatureConfig()))
		logger.Info("config reloaded; feature policies applied",
			"bridge_packages", len(newCfg.Routes.BridgePackages))
	})
	if err != nil {
		logger.Warn("failed to create config watcher", "error", err)
	} else if err := watcher.Start(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	logger.Info("hyperisled ready", "dbus_interface", bridge.DBusInterface)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("error stopping config watcher", "error", err)
		}
	}
	sweeper.Stop()
	if err := srv.Stop(); err != nil {
		logger.Warn("error stopping bridge server", "error", err)
	}
	coord.Close()

	logger.Info("hyperisled stopped")
	return nil
}

// overlayGeometry maps the config section onto the host geometry.
func overlayGeometry(cfg *config.Config) overlay.Geometry {
	return overlay.Geometry{
		ScreenWidth:   cfg.Overlay.ScreenWidth,
		CutoutCenterX: cfg.Overlay.CutoutCenterX,
		CutoutWidth:   cfg.Overlay.CutoutWidth,
		IslandWidth:   cfg.Overlay.IslandWidth,
		Margin:        cfg.Overlay.Margin,
		TopOffset:     cfg.Overlay.TopOffset,
	}
}
