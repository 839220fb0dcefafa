// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Session struct {
		IdleTimeoutMinutes   int  `mapstructure:"idle_timeout_minutes" yaml:"idle_timeout_minutes"`
		MaxInstallments      int  `mapstructure:"max_installments" yaml:"max_installments"`
		DescriptionMaxLength int  `mapstructure:"description_max_length" yaml:"description_max_length"`
		RejectOverlapping    bool `mapstructure:"reject_overlapping" yaml:"reject_overlapping"`
	} `mapstructure:"session" yaml:"session"`

	Categories struct {
		KeywordsFile  string `mapstructure:"keywords_file" yaml:"keywords_file"`
		HistoryFile   string `mapstructure:"history_file" yaml:"history_file"`
		WorkspaceFile string `mapstructure:"workspace_file" yaml:"workspace_file"`
	} `mapstructure:"categories" yaml:"categories"`

	Server struct {
		Addr                string `mapstructure:"addr" yaml:"addr"`
		ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	} `mapstructure:"server" yaml:"server"`

	Database struct {
		URL string `mapstructure:"url" yaml:"-"` // Never serialize credentials
	} `mapstructure:"database" yaml:"database"`

	Cache struct {
		TTLSeconds  int   `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
		NumCounters int64 `mapstructure:"num_counters" yaml:"num_counters"`
		MaxCost     int64 `mapstructure:"max_cost" yaml:"max_cost"`
	} `mapstructure:"cache" yaml:"cache"`

	Anomaly struct {
		Factor     float64 `mapstructure:"factor" yaml:"factor"`
		MinSamples int     `mapstructure:"min_samples" yaml:"min_samples"`
	} `mapstructure:"anomaly" yaml:"anomaly"`
}

// IdleTimeout is the session idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

// CacheTTL is the directory cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.finchat")
	v.AddConfigPath(".finchat")
	v.AddConfigPath(".")

	// 3. Environment variables
	v.SetEnvPrefix("FINCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. The conventional DATABASE_URL also works, unprefixed
	if err := v.BindEnv("database.url", "FINCHAT_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("session.idle_timeout_minutes", 60)
	v.SetDefault("session.max_installments", 48)
	v.SetDefault("session.description_max_length", 100)
	v.SetDefault("session.reject_overlapping", false)

	v.SetDefault("categories.keywords_file", "categories.yaml")
	v.SetDefault("categories.history_file", "history.yaml")
	v.SetDefault("categories.workspace_file", "workspace.yaml")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)

	v.SetDefault("database.url", "")

	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("cache.num_counters", 10000)
	v.SetDefault("cache.max_cost", 10000)

	v.SetDefault("anomaly.factor", 3.0)
	v.SetDefault("anomaly.min_samples", 3)
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Session.IdleTimeoutMinutes < 1 || config.Session.IdleTimeoutMinutes > 24*60 {
		return fmt.Errorf("session.idle_timeout_minutes must be between 1 and 1440, got: %d", config.Session.IdleTimeoutMinutes)
	}

	if config.Session.MaxInstallments < 1 || config.Session.MaxInstallments > 120 {
		return fmt.Errorf("session.max_installments must be between 1 and 120, got: %d", config.Session.MaxInstallments)
	}

	if config.Session.DescriptionMaxLength < 10 || config.Session.DescriptionMaxLength > 500 {
		return fmt.Errorf("session.description_max_length must be between 10 and 500, got: %d", config.Session.DescriptionMaxLength)
	}

	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}

	if config.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative, got: %d", config.Cache.TTLSeconds)
	}

	if config.Cache.NumCounters < 1 || config.Cache.MaxCost < 1 {
		return fmt.Errorf("cache.num_counters and cache.max_cost must be positive")
	}

	if config.Anomaly.Factor <= 1.0 {
		return fmt.Errorf("anomaly.factor must be greater than 1.0, got: %f", config.Anomaly.Factor)
	}

	if config.Anomaly.MinSamples < 1 {
		return fmt.Errorf("anomaly.min_samples must be at least 1, got: %d", config.Anomaly.MinSamples)
	}

	return nil
}
