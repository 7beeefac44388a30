package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config maps the entire application configuration. Every knob the core
// uses is injectable here; nothing is hard-coded in the packages below.
type Config struct {
	// Server configuration for the HTTP surface.
	Server struct {
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
		BaseURL string `mapstructure:"base_url"` // prefix for generated short links
	} `mapstructure:"server"`

	// ShortURL holds the business defaults for record creation.
	ShortURL struct {
		DefaultValidityMinutes int `mapstructure:"default_validity_minutes"`
		CodeLength             int `mapstructure:"code_length"`     // generated code length
		MaxCodeLength          int `mapstructure:"max_code_length"` // bound for custom codes
	} `mapstructure:"shorturl"`

	// Cache configures the bounded TTL cache in front of lookups.
	Cache struct {
		TTLMinutes           int `mapstructure:"ttl_minutes"`
		MaxSize              int `mapstructure:"max_size"`
		SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
	} `mapstructure:"cache"`

	// Cleanup configures the periodic expired-record sweep.
	Cleanup struct {
		IntervalMinutes int `mapstructure:"interval_minutes"`
	} `mapstructure:"cleanup"`

	// Analytics configures the asynchronous click event forwarder.
	Analytics struct {
		BufferSize     int    `mapstructure:"buffer_size"`
		WorkerCount    int    `mapstructure:"worker_count"`
		Endpoint       string `mapstructure:"endpoint"` // empty disables forwarding
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"analytics"`

	// GeoIP configures the external geolocation lookup.
	GeoIP struct {
		BaseURL   string `mapstructure:"base_url"`
		TimeoutMS int    `mapstructure:"timeout_ms"`
	} `mapstructure:"geoip"`

	// Storage selects the store implementation.
	Storage struct {
		Driver string `mapstructure:"driver"` // "memory" or "sqlite"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"storage"`
}

// DefaultValidity returns the default record validity as a duration.
func (c *Config) DefaultValidity() time.Duration {
	return time.Duration(c.ShortURL.DefaultValidityMinutes) * time.Minute
}

// CacheTTL returns the cache entry TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// CacheSweepInterval returns the cache sweep period as a duration.
func (c *Config) CacheSweepInterval() time.Duration {
	return time.Duration(c.Cache.SweepIntervalMinutes) * time.Minute
}

// CleanupInterval returns the cleanup scheduler period as a duration.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalMinutes) * time.Minute
}

// GeoIPTimeout returns the geolocation lookup timeout as a duration.
func (c *Config) GeoIPTimeout() time.Duration {
	return time.Duration(c.GeoIP.TimeoutMS) * time.Millisecond
}

// AnalyticsTimeout returns the forwarder request timeout as a duration.
func (c *Config) AnalyticsTimeout() time.Duration {
	return time.Duration(c.Analytics.TimeoutSeconds) * time.Second
}

// LoadConfig loads the application configuration using Viper. Values come
// from ./configs/config.yaml when present, overridable via environment
// variables (server.port → SERVER_PORT), falling back to the defaults below.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")

	viper.SetDefault("shorturl.default_validity_minutes", 30)
	viper.SetDefault("shorturl.code_length", 6)
	viper.SetDefault("shorturl.max_code_length", 20)

	viper.SetDefault("cache.ttl_minutes", 5)
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.sweep_interval_minutes", 5)

	viper.SetDefault("cleanup.interval_minutes", 30)

	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("analytics.endpoint", "")
	viper.SetDefault("analytics.timeout_seconds", 5)

	viper.SetDefault("geoip.base_url", "http://ip-api.com")
	viper.SetDefault("geoip.timeout_ms", 2000)

	viper.SetDefault("storage.driver", "memory")
	// In-process SQLite: wiped on restart unless an operator points the
	// DSN at a file.
	viper.SetDefault("storage.dsn", "file::memory:?cache=shared")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using default values")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, Storage Driver=%s, Cache Max=%d, Cleanup Interval=%dmin",
		cfg.Server.Port, cfg.Storage.Driver, cfg.Cache.MaxSize, cfg.Cleanup.IntervalMinutes)

	return &cfg, nil
}
