package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/honeysting/honeysting/internal/alert"
	"github.com/honeysting/honeysting/internal/cursor"
	"github.com/honeysting/honeysting/internal/geo"
	"github.com/honeysting/honeysting/internal/logging"
	"github.com/honeysting/honeysting/internal/logreader"
	"github.com/honeysting/honeysting/internal/parser"
	"github.com/honeysting/honeysting/internal/pipeline"
	"github.com/honeysting/honeysting/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one ingestion pass",
	Long: `Reads new honeypot log lines since the saved cursor, stores parsed
events, advances the cursor, and delivers alerts for newly stored activity.

Exits 3 when another run holds the ingest lock and 4 when the log was
truncated and no reset policy is configured.`,
	Example: `  honeysting run
  honeysting run --reset-on-truncate`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("reset-on-truncate", false, "reset the cursor to 0 when the log is shorter than the cursor")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reset := cfg.Ingest.ResetOnTruncate
	if cmd.Flags().Changed("reset-on-truncate") {
		reset, _ = cmd.Flags().GetBool("reset-on-truncate")
	}

	sourceLoc, err := time.LoadLocation(cfg.Log.Timezone)
	if err != nil {
		return fmt.Errorf("load log timezone: %w", err)
	}

	eventStore, err := store.NewSQLiteStore(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	resolver := openResolver()
	defer resolver.Close()

	var channels []alert.Channel
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel(cfg.Alert.WebhookURL, cfg.Alert.Timeout))
	}
	if cfg.Alert.SlackURL != "" {
		channels = append(channels, alert.NewSlackChannel(cfg.Alert.SlackURL, cfg.Alert.Timeout))
	}

	pipe := pipeline.New(
		logreader.New(cfg.Log.Path),
		parser.New(sourceLoc),
		eventStore,
		cursor.NewStore(cfg.Ingest.CursorPath),
		pipeline.Options{
			LockPath:        cfg.Ingest.LockPath,
			ResetOnTruncate: reset,
			Channels:        channels,
			Geo:             resolver,
			Logger:          log,
			AlertTimeout:    cfg.Alert.Timeout,
		},
	)

	stats, err := pipe.Run(ctx)
	if err != nil {
		return err
	}

	if stats.Progressed() {
		color.Green("Ingested %d new events (%d lines, %d parse errors, %d duplicates skipped)",
			stats.Inserted, stats.LinesRead, stats.ParseErrors, stats.Duplicates)
	} else {
		color.Yellow("No new log data (cursor at %d)", stats.EndOffset)
	}
	if stats.AlertsFailed > 0 {
		color.Red("%d alert deliveries failed (see logs)", stats.AlertsFailed)
	}
	return nil
}

// openResolver opens the configured geolocation database, degrading to
// Unknown lookups when it is missing. Geolocation is enrichment only and
// must never block ingestion or reporting.
func openResolver() geo.Resolver {
	if cfg.Geo.MMDBPath == "" {
		return geo.Noop{}
	}
	mmdb, err := geo.OpenMMDB(cfg.Geo.MMDBPath)
	if err != nil {
		log.Warn("geolocation database unavailable, countries will be Unknown",
			logging.Err(err))
		return geo.Noop{}
	}
	return geo.NewCached(mmdb)
}
