// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Logger  LoggerConfig           `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig          `mapstructure:"browser" yaml:"browser"`
	Run     RunConfig              `mapstructure:"run" yaml:"run"`
	Sites   map[string]SiteProfile `mapstructure:"sites" yaml:"sites"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the browser process.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	UserDataDir     string   `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// RunConfig tunes the behavior of a single checkout run.
type RunConfig struct {
	// CaptureDir is where diagnostic screenshots are written. Empty disables capture.
	CaptureDir string `mapstructure:"capture_dir" yaml:"capture_dir"`
	// ReportFile is where the run report JSON is written. Empty disables the report.
	ReportFile string `mapstructure:"report_file" yaml:"report_file"`
	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// NewDefaultConfig creates a configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for the configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cartpilot")
	v.SetDefault("logger.log_file", "cartpilot.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1400)
	v.SetDefault("browser.window_height", 900)

	// -- Run --
	v.SetDefault("run.capture_dir", "captures")
	v.SetDefault("run.report_file", "")
	v.SetDefault("run.navigation_timeout", "90s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Run.NavigationTimeout < 0 {
		return fmt.Errorf("run.navigation_timeout must not be negative")
	}
	for id := range c.Sites {
		profile := c.Sites[id]
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("site profile %q invalid: %w", id, err)
		}
	}
	return nil
}

// Profile returns the site profile for the given identifier.
func (c *Config) Profile(siteID string) (*SiteProfile, error) {
	profile, ok := c.Sites[siteID]
	if !ok {
		return nil, fmt.Errorf("no site profile configured for %q", siteID)
	}
	profile.ID = siteID
	return &profile, nil
}
