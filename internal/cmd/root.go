package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/honeysting/honeysting/internal/config"
	"github.com/honeysting/honeysting/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "honeysting",
	Short: "OpenCanary honeypot reporter",
	Long: `honeysting ingests an OpenCanary honeypot log into a local event
store, derives daily and all-time attack metrics, and publishes alerts and
summary reports.

Designed to be invoked on a schedule: every run resumes exactly where the
previous one stopped, and interrupted runs are always safe to retry.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Errors are printed here; the caller maps well-known
// conditions to exit codes.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: env + built-in defaults)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load config: %v\n", err)
		os.Exit(1)
	}

	log = logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)
}
