package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reporter.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Store   StoreConfig   `mapstructure:"store"`
	Report  ReportConfig  `mapstructure:"report"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Alert   AlertConfig   `mapstructure:"alert"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LogConfig describes the honeypot log file being ingested.
type LogConfig struct {
	Path string `mapstructure:"path"`
	// Timezone used to interpret local_time stamps in the source log.
	Timezone string `mapstructure:"timezone"`
}

// IngestConfig holds cursor and lock locations for the ingestion pipeline.
type IngestConfig struct {
	CursorPath string `mapstructure:"cursor_path"`
	LockPath   string `mapstructure:"lock_path"`
	// ResetOnTruncate controls the log-rotation policy: when true a
	// truncated log resets the cursor to 0, otherwise the run halts.
	ResetOnTruncate bool `mapstructure:"reset_on_truncate"`
}

// StoreConfig holds the event store location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ReportConfig holds aggregation and publishing settings.
type ReportConfig struct {
	// Timezone defining civil-day window boundaries for daily metrics.
	Timezone  string `mapstructure:"timezone"`
	OutputDir string `mapstructure:"output_dir"`
	TopN      int    `mapstructure:"top_n"`
}

// GeoConfig holds the geolocation database location.
type GeoConfig struct {
	MMDBPath string `mapstructure:"mmdb_path"`
}

// AlertConfig holds the alert sink endpoint.
type AlertConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	SlackURL   string        `mapstructure:"slack_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log.path", "/var/log/opencanary.log")
	v.SetDefault("log.timezone", "UTC")

	v.SetDefault("ingest.cursor_path", "/opt/honeysting/ingest.pos")
	v.SetDefault("ingest.lock_path", "/opt/honeysting/ingest.lock")
	v.SetDefault("ingest.reset_on_truncate", false)

	v.SetDefault("store.path", "/opt/honeysting/stats.db")

	v.SetDefault("report.timezone", "America/New_York")
	v.SetDefault("report.output_dir", "/opt/honeysting/repo")
	v.SetDefault("report.top_n", 10)

	v.SetDefault("geo.mmdb_path", "/usr/share/GeoIP/GeoLite2-City.mmdb")

	v.SetDefault("alert.webhook_url", "")
	v.SetDefault("alert.slack_url", "")
	v.SetDefault("alert.timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read from config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config, e.g.
	// HONEYSTING_LOG_PATH, HONEYSTING_REPORT_TIMEZONE.
	v.SetEnvPrefix("HONEYSTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration invariants that viper cannot express.
func (c *Config) Validate() error {
	if c.Log.Path == "" {
		return fmt.Errorf("log.path must not be empty")
	}
	if c.Ingest.CursorPath == "" {
		return fmt.Errorf("ingest.cursor_path must not be empty")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Report.TopN <= 0 {
		return fmt.Errorf("report.top_n must be positive, got %d", c.Report.TopN)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("invalid report.timezone %q: %w", c.Report.Timezone, err)
	}
	if _, err := time.LoadLocation(c.Log.Timezone); err != nil {
		return fmt.Errorf("invalid log.timezone %q: %w", c.Log.Timezone, err)
	}
	return nil
}
