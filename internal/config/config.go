package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/tetrascan/internal/days"
)

// DefaultStations is the detector network: two LSU boxes, two in Huntsville,
// ten in Puerto Rico and five in Panama.
var DefaultStations = []string{
	"LSU_01", "LSU_02",
	"UAH_01", "UAH_02",
	"PR_01", "PR_02", "PR_03", "PR_04", "PR_05", "PR_06", "PR_07", "PR_08", "PR_09", "PR_10",
	"PA_01", "PA_02", "PA_03", "PA_04", "PA_05",
}

// Config represents the complete application configuration
type Config struct {
	Scan     ScanConfig     `mapstructure:"scan"`
	Window   WindowConfig   `mapstructure:"window"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ScanConfig holds the default scan request
type ScanConfig struct {
	BasePath         string   `mapstructure:"base_path"`
	StartDate        string   `mapstructure:"start_date"`
	DurationDays     int      `mapstructure:"duration_days"`
	ThresholdSigma   int      `mapstructure:"threshold_sigma"`
	ExpectedBinCount int      `mapstructure:"expected_bin_count"`
	Stations         []string `mapstructure:"stations"`
	Workers          int      `mapstructure:"workers"` // Each worker holds one day: ~24 B/bin, ~1 GB for a full day
}

// WindowConfig holds the event window geometry
type WindowConfig struct {
	HalfWidth      float64 `mapstructure:"half_width"`
	CoarseBinWidth float64 `mapstructure:"coarse_bin_width"`
	FineBinWidth   float64 `mapstructure:"fine_bin_width"`
	BinsBefore     int     `mapstructure:"bins_before"`
	BinsAfter      int     `mapstructure:"bins_after"`
	RawChannels    int     `mapstructure:"raw_channels"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"` // Empty disables export
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. TETRASCAN_SCAN_BASE_PATH
	v.SetEnvPrefix("TETRASCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Scan defaults
	v.SetDefault("scan.base_path", "./array")
	v.SetDefault("scan.start_date", "2015_01_01")
	v.SetDefault("scan.duration_days", 1)
	v.SetDefault("scan.threshold_sigma", 30)
	v.SetDefault("scan.expected_bin_count", 43_200_000)
	v.SetDefault("scan.stations", DefaultStations)
	v.SetDefault("scan.workers", 4)

	// Window defaults: 2 ms coarse bins, 20 µs fine bins
	v.SetDefault("window.half_width", 0.5)
	v.SetDefault("window.coarse_bin_width", 0.002)
	v.SetDefault("window.fine_bin_width", 0.00002)
	v.SetDefault("window.bins_before", 5)
	v.SetDefault("window.bins_after", 6)
	v.SetDefault("window.raw_channels", 3)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Metrics defaults
	v.SetDefault("metrics.textfile_path", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Scan config
	if c.Scan.BasePath == "" {
		return fmt.Errorf("scan.base_path is required")
	}
	if _, err := days.Parse(c.Scan.StartDate); err != nil {
		return fmt.Errorf("scan.start_date: %w", err)
	}
	if c.Scan.DurationDays < 1 || c.Scan.DurationDays > 1000 {
		return fmt.Errorf("scan.duration_days must be between 1 and 1000")
	}
	if c.Scan.ThresholdSigma < 1 {
		return fmt.Errorf("scan.threshold_sigma must be at least 1")
	}
	if c.Scan.ExpectedBinCount < 2 {
		return fmt.Errorf("scan.expected_bin_count must be at least 2")
	}
	if len(c.Scan.Stations) == 0 {
		return fmt.Errorf("scan.stations must contain at least one station")
	}
	for _, s := range c.Scan.Stations {
		if s == "" || strings.ContainsAny(s, `/\`) {
			return fmt.Errorf("scan.stations contains invalid station %q", s)
		}
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}

	// Validate Window config
	if c.Window.HalfWidth <= 0 {
		return fmt.Errorf("window.half_width must be positive")
	}
	if c.Window.CoarseBinWidth <= 0 || c.Window.FineBinWidth <= 0 {
		return fmt.Errorf("window bin widths must be positive")
	}
	if c.Window.FineBinWidth > c.Window.CoarseBinWidth {
		return fmt.Errorf("window.fine_bin_width must not exceed window.coarse_bin_width")
	}
	if c.Window.BinsBefore < 0 || c.Window.BinsAfter < 0 {
		return fmt.Errorf("window.bins_before and window.bins_after must not be negative")
	}
	if c.Window.RawChannels < 1 {
		return fmt.Errorf("window.raw_channels must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
