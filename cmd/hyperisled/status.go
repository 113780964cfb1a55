package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	godbus "github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/coni-eng/HyperIsle-sub002/internal/bridge"
	"github.com/coni-eng/HyperIsle-sub002/internal/island"
)

var statusOpts struct {
	asJSON bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running daemon for its coordinator snapshot",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.asJSON, "json", false,
		"Print the raw JSON snapshot")
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, err := godbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	obj := conn.Object(bridge.DBusBusName, bridge.DBusPath)
	var raw string
	if err := obj.Call(bridge.DBusInterface+".Status", 0).Store(&raw); err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}

	if statusOpts.asJSON {
		fmt.Println(raw)
		return nil
	}

	var snap island.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if snap.ActiveKey == "" {
		fmt.Println("island: idle")
	} else {
		fmt.Printf("island: %s (%s)\n", snap.ActiveKey, snap.ActiveFeature)
	}
	fmt.Printf("parked for resume: %d\n", snap.ResumeDepth)
	fmt.Printf("guard entries: %d user-dismissed, %d removed\n",
		snap.UserDismissedKeys, snap.RemovedKeys)
	fmt.Fprintf(os.Stdout,
		"events: %s accepted, %s guarded, %s preempted, %s resumed, %s dropped\n",
		humanize.Comma(int64(snap.Accepted)),
		humanize.Comma(int64(snap.Guarded)),
		humanize.Comma(int64(snap.Preempted)),
		humanize.Comma(int64(snap.Resumed)),
		humanize.Comma(int64(snap.Dropped)))
	return nil
}
