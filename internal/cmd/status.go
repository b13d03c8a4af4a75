package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/honeysting/honeysting/internal/cursor"
	"github.com/honeysting/honeysting/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cursor position and event store counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	offset, err := cursor.NewStore(cfg.Ingest.CursorPath).Read()
	if err != nil {
		return err
	}

	var logSize int64 = -1
	if info, err := os.Stat(cfg.Log.Path); err == nil {
		logSize = info.Size()
	}

	eventStore, err := store.NewSQLiteStore(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	total, err := eventStore.CountEvents(ctx, store.Window{})
	if err != nil {
		return err
	}
	ips, err := eventStore.CountDistinctIPs(ctx, store.Window{})
	if err != nil {
		return err
	}

	color.New(color.Bold).Println("Honeysting status")
	fmt.Printf("  Log:          %s\n", cfg.Log.Path)
	if logSize < 0 {
		fmt.Printf("  Log size:     (missing)\n")
	} else {
		fmt.Printf("  Log size:     %d bytes\n", logSize)
	}
	fmt.Printf("  Cursor:       %d\n", offset)
	if logSize >= 0 && offset > logSize {
		color.Red("  Cursor is past end of log: log was truncated or rotated")
	} else if logSize >= 0 {
		fmt.Printf("  Unconsumed:   %d bytes\n", logSize-offset)
	}
	fmt.Printf("  Events:       %d\n", total)
	fmt.Printf("  Distinct IPs: %d\n", ips)
	return nil
}
