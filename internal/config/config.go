// Package config loads service settings from YAML and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all natal-symphony configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Ephemeris  EphemerisConfig  `yaml:"ephemeris"`
	Locations  LocationsConfig  `yaml:"locations"`
	Database   DatabaseConfig   `yaml:"database"`
	Suno       SunoConfig       `yaml:"suno"`
	Generation GenerationConfig `yaml:"generation"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr              string `yaml:"addr" env:"HTTP_ADDR, overwrite"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL, overwrite"` // debug, info, warn, error
}

// EphemerisConfig configures the chart calculation service and its cache.
type EphemerisConfig struct {
	URL        string `yaml:"url" env:"EPHEMERIS_URL, overwrite"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
	// CacheDir is the badger directory; empty keeps the cache in memory.
	CacheDir    string `yaml:"cache_dir" env:"EPHEMERIS_CACHE_DIR, overwrite"`
	CacheTTL    string `yaml:"cache_ttl"`
	SkyCacheTTL string `yaml:"sky_cache_ttl"`
}

// LocationsConfig configures the geocoder.
type LocationsConfig struct {
	URL          string `yaml:"url" env:"NOMINATIM_URL, overwrite"`
	UserAgent    string `yaml:"user_agent"`
	CacheEntries int64  `yaml:"cache_entries"`
	CacheTTL     string `yaml:"cache_ttl"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH, overwrite"`
}

// SunoConfig configures the audio provider. Without an API key the mock
// provider is used.
type SunoConfig struct {
	URL       string `yaml:"url" env:"SUNO_API_URL, overwrite"`
	APIKey    string `yaml:"api_key" env:"SUNO_API_KEY, overwrite"`
	MockDelay string `yaml:"mock_delay"`
}

// GenerationConfig sizes the worker pool and bounds provider polling.
type GenerationConfig struct {
	Workers      int    `yaml:"workers" env:"GENERATION_WORKERS, overwrite"`
	QueueSize    int    `yaml:"queue_size"`
	PollInterval string `yaml:"poll_interval"`
	MaxWait      string `yaml:"max_wait" env:"GENERATION_MAX_WAIT, overwrite"`
}

// TracingConfig configures the OTLP/HTTP exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"TRACING_ENABLED, overwrite"`
	Endpoint    string  `yaml:"endpoint" env:"TRACING_ENDPOINT, overwrite"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: "15s",
			ShutdownTimeout:   "10s",
		},
		Log: LogConfig{Level: "info"},
		Ephemeris: EphemerisConfig{
			URL:         "http://localhost:8000",
			Timeout:     "30s",
			MaxRetries:  3,
			CacheTTL:    "720h",
			SkyCacheTTL: "5m",
		},
		Locations: LocationsConfig{
			URL:          "https://nominatim.openstreetmap.org",
			UserAgent:    "NatalSymphony/1.0",
			CacheEntries: 1000,
			CacheTTL:     "1h",
		},
		Database: DatabaseConfig{Path: "natal-symphony.db"},
		Suno: SunoConfig{
			URL:       "https://api.suno.ai",
			MockDelay: "8s",
		},
		Generation: GenerationConfig{
			Workers:      2,
			QueueSize:    100,
			PollInterval: "5s",
			MaxWait:      "10m",
		},
		Tracing: TracingConfig{
			SampleRatio: 1,
			ServiceName: "natal-symphony",
		},
	}
}

// Load reads path over the defaults, applies environment overrides from
// lookuper and validates the result. A missing file is not an error.
// A nil lookuper reads the process environment.
func Load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Ephemeris.URL == "" {
		errs = append(errs, errors.New("ephemeris.url is required"))
	}
	if c.Locations.URL == "" {
		errs = append(errs, errors.New("locations.url is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Generation.Workers < 1 {
		errs = append(errs, fmt.Errorf("generation.workers must be positive, got %d", c.Generation.Workers))
	}
	if c.Generation.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("generation.queue_size must be positive, got %d", c.Generation.QueueSize))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio %v outside [0, 1]", c.Tracing.SampleRatio))
	}

	durations := map[string]string{
		"server.read_header_timeout": c.Server.ReadHeaderTimeout,
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"ephemeris.timeout":          c.Ephemeris.Timeout,
		"ephemeris.cache_ttl":        c.Ephemeris.CacheTTL,
		"ephemeris.sky_cache_ttl":    c.Ephemeris.SkyCacheTTL,
		"locations.cache_ttl":        c.Locations.CacheTTL,
		"suno.mock_delay":            c.Suno.MockDelay,
		"generation.poll_interval":   c.Generation.PollInterval,
		"generation.max_wait":        c.Generation.MaxWait,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// UseMockGenerator reports whether generation should use the in-process mock.
func (c *Config) UseMockGenerator() bool {
	return c.Suno.APIKey == ""
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) ReadHeaderTimeout() time.Duration {
	return duration(c.Server.ReadHeaderTimeout, 15*time.Second)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

func (c *Config) EphemerisTimeout() time.Duration {
	return duration(c.Ephemeris.Timeout, 30*time.Second)
}

func (c *Config) EphemerisCacheTTL() time.Duration {
	return duration(c.Ephemeris.CacheTTL, 720*time.Hour)
}

func (c *Config) SkyCacheTTL() time.Duration {
	return duration(c.Ephemeris.SkyCacheTTL, 5*time.Minute)
}

func (c *Config) LocationCacheTTL() time.Duration {
	return duration(c.Locations.CacheTTL, time.Hour)
}

func (c *Config) MockDelay() time.Duration {
	return duration(c.Suno.MockDelay, 8*time.Second)
}

func (c *Config) PollInterval() time.Duration {
	return duration(c.Generation.PollInterval, 5*time.Second)
}

func (c *Config) MaxWait() time.Duration {
	return duration(c.Generation.MaxWait, 10*time.Minute)
}
