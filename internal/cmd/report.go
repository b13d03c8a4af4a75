package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/honeysting/honeysting/internal/aggregate"
	"github.com/honeysting/honeysting/internal/models"
	"github.com/honeysting/honeysting/internal/report"
	"github.com/honeysting/honeysting/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate metrics and publish the summary report",
	Long: `Computes all-time metrics from the event store, renders the Markdown
report, and writes it into the configured output directory. Daily windows
are aligned to civil midnight in the report timezone.`,
	Example: `  honeysting report
  honeysting report --stdout
  honeysting report --day 2026-08-29 --stdout`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("stdout", false, "print a terminal summary instead of publishing")
	reportCmd.Flags().String("day", "", "report one civil day (YYYY-MM-DD in the report timezone) instead of all time")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	toStdout, _ := cmd.Flags().GetBool("stdout")
	day, _ := cmd.Flags().GetString("day")

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		return fmt.Errorf("load report timezone: %w", err)
	}

	eventStore, err := store.NewSQLiteStore(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer eventStore.Close()

	resolver := openResolver()
	defer resolver.Close()

	agg := aggregate.New(eventStore, resolver, loc, cfg.Report.TopN)

	var m *models.Metrics
	if day != "" {
		date, err := time.ParseInLocation("2006-01-02", day, loc)
		if err != nil {
			return fmt.Errorf("invalid --day %q: %w", day, err)
		}
		if m, err = agg.ForDay(ctx, date); err != nil {
			return err
		}
	} else {
		if m, err = agg.AllTime(ctx); err != nil {
			return err
		}
	}

	if toStdout {
		printMetrics(m)
		return nil
	}

	renderer := report.NewRenderer(loc)
	publisher, err := report.NewDirPublisher(cfg.Report.OutputDir)
	if err != nil {
		return err
	}
	if err := publisher.Publish("README.md", []byte(renderer.Markdown(m, time.Now()))); err != nil {
		return err
	}
	color.Green("Report published to %s", cfg.Report.OutputDir)
	return nil
}

func printMetrics(m *models.Metrics) {
	title := color.New(color.Bold)
	if m.AllTime() {
		title.Println("All-time metrics")
	} else {
		title.Printf("Metrics for %s → %s\n",
			m.WindowStart.Format(time.RFC3339), m.WindowEnd.Format(time.RFC3339))
	}
	fmt.Printf("  Total events: %d\n", m.TotalEvents)
	fmt.Printf("  Distinct IPs: %d\n", m.DistinctIPs)

	printBreakdown("Ports", m.ByPort, report.PortLabel)
	printBreakdown("Countries", m.ByCountry, nil)
	printBreakdown("Usernames", m.ByUsername, nil)
	printBreakdown("Passwords", m.ByPassword, nil)
}

func printBreakdown(title string, rows []models.BucketCount, label func(string) string) {
	if len(rows) == 0 {
		return
	}
	color.New(color.Bold).Printf("  %s:\n", title)
	for _, row := range rows {
		key := row.Key
		if label != nil {
			key = label(key)
		}
		fmt.Printf("    %-30s %d\n", key, row.Count)
	}
}
