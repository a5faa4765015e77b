// Package config provides configuration management for market-scout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Screener ScreenerConfig `mapstructure:"screener"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ProviderConfig holds market data provider configuration.
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"-"` // Loaded from credentials.toml
	RateRPS   float64       `mapstructure:"rate_rps"`
	RateBurst int           `mapstructure:"rate_burst"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ScreenerConfig holds screening engine configuration.
type ScreenerConfig struct {
	Watchlist     []string `mapstructure:"watchlist"`
	MaxCandidates int      `mapstructure:"max_candidates"`
	FallbackSize  int      `mapstructure:"fallback_size"`
	Concurrency   int      `mapstructure:"concurrency"`
}

// AlertsConfig holds alert engine configuration.
type AlertsConfig struct {
	EarningsWindowHours int `mapstructure:"earnings_window_hours"`
}

// StorageConfig holds embedded store configuration.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/market-scout"
	}
	return filepath.Join(home, ".config", "market-scout")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		// Config file not found, write a template and continue with defaults
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider.base_url", "https://api.example-marketdata.com/v1")
	v.SetDefault("provider.rate_rps", 5.0)
	v.SetDefault("provider.rate_burst", 1)
	v.SetDefault("provider.timeout", 10*time.Second)

	v.SetDefault("screener.watchlist", []string{})
	v.SetDefault("screener.max_candidates", 10)
	v.SetDefault("screener.fallback_size", 20)
	v.SetDefault("screener.concurrency", 4)

	v.SetDefault("alerts.earnings_window_hours", 24)

	v.SetDefault("storage.path", filepath.Join(configDir, "market-scout.db"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "scout.log"))
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
}

func loadCredentials(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	cfg.Provider.APIKey = v.GetString("provider.api_key")
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARKETSCOUT_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("MARKETSCOUT_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("MARKETSCOUT_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url must be set")
	}
	if c.Provider.RateRPS <= 0 {
		return fmt.Errorf("provider.rate_rps must be positive")
	}
	if c.Provider.RateBurst < 1 {
		return fmt.Errorf("provider.rate_burst must be at least 1")
	}
	if c.Screener.MaxCandidates < 1 {
		return fmt.Errorf("screener.max_candidates must be at least 1")
	}
	if c.Screener.FallbackSize < 1 {
		return fmt.Errorf("screener.fallback_size must be at least 1")
	}
	if c.Screener.Concurrency < 1 {
		return fmt.Errorf("screener.concurrency must be at least 1")
	}
	if c.Alerts.EarningsWindowHours < 1 {
		return fmt.Errorf("alerts.earnings_window_hours must be at least 1")
	}
	return nil
}
